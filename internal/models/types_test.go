package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomerType(t *testing.T) {
	tests := []struct {
		in   string
		want CustomerType
	}{
		{in: "business", want: CustomerBusiness},
		{in: " BUSINESS ", want: CustomerBusiness},
		{in: "personal", want: CustomerPersonal},
		{in: "vip", want: CustomerPersonal},
		{in: "", want: CustomerPersonal},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCustomerType(tt.in))
		})
	}
}

func TestCustomer_UnmarshalSegment(t *testing.T) {
	tests := []struct {
		name string
		body string
		want CustomerType
	}{
		{name: "business", body: `{"id":"c1","type":"business"}`, want: CustomerBusiness},
		{name: "other segment", body: `{"id":"c1","type":"vip"}`, want: CustomerPersonal},
		{name: "missing type", body: `{"id":"c1"}`, want: CustomerPersonal},
		{name: "null type", body: `{"id":"c1","type":null}`, want: CustomerPersonal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Customer
			require.NoError(t, json.Unmarshal([]byte(tt.body), &c))
			assert.Equal(t, tt.want, c.Type)
		})
	}
}

func TestCustomerType_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(CustomerBusiness)
	require.NoError(t, err)
	assert.JSONEq(t, `"business"`, string(data))
}
