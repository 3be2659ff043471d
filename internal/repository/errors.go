package repository

import "errors"

var (
	ErrNotFound        = errors.New("account not found")
	ErrTypeNotFound    = errors.New("account type not found")
	ErrVersionConflict = errors.New("account was modified concurrently")
	ErrDuplicate       = errors.New("account already exists")
)
