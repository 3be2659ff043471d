package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection     = "bankAccounts"
	accountTypesCollection = "accountTypes"
)

// ConnectMongo opens and pings a MongoDB client.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetMaxPoolSize(50))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

type accountDocument struct {
	ID                   string               `bson:"_id"`
	CustomerID           string               `bson:"customerId"`
	Type                 string               `bson:"type"`
	NumberAccount        string               `bson:"numberAccount"`
	Amount               primitive.Decimal128 `bson:"amount"`
	NumberOfTransactions int                  `bson:"numberOfTransactions"`
	TransactionLimit     int                  `bson:"transactionLimit"`
	Commission           primitive.Decimal128 `bson:"commission"`
	DebitCardID          string               `bson:"debitCardId,omitempty"`
	AssociationDate      string               `bson:"associationDate,omitempty"`
	PrimaryAccount       bool                 `bson:"primaryAccount"`
	CreationDate         string               `bson:"creationDate"`
	Version              int64                `bson:"version"`
}

func toDocument(a *models.Account) (*accountDocument, error) {
	amount, err := primitive.ParseDecimal128(a.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	commission, err := primitive.ParseDecimal128(a.Commission.String())
	if err != nil {
		return nil, fmt.Errorf("invalid commission: %w", err)
	}
	return &accountDocument{
		ID:                   a.ID,
		CustomerID:           a.CustomerID,
		Type:                 a.Type,
		NumberAccount:        a.NumberAccount,
		Amount:               amount,
		NumberOfTransactions: a.NumberOfTransactions,
		TransactionLimit:     a.TransactionLimit,
		Commission:           commission,
		DebitCardID:          a.DebitCardID,
		AssociationDate:      a.AssociationDate,
		PrimaryAccount:       a.PrimaryAccount,
		CreationDate:         a.CreationDate,
		Version:              a.Version,
	}, nil
}

func (d *accountDocument) toModel() (*models.Account, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount for %s: %w", d.ID, err)
	}
	commission, err := decimal.NewFromString(d.Commission.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored commission for %s: %w", d.ID, err)
	}
	return &models.Account{
		ID:                   d.ID,
		CustomerID:           d.CustomerID,
		Type:                 d.Type,
		NumberAccount:        d.NumberAccount,
		Amount:               amount,
		NumberOfTransactions: d.NumberOfTransactions,
		TransactionLimit:     d.TransactionLimit,
		Commission:           commission,
		DebitCardID:          d.DebitCardID,
		AssociationDate:      d.AssociationDate,
		PrimaryAccount:       d.PrimaryAccount,
		CreationDate:         d.CreationDate,
		Version:              d.Version,
	}, nil
}

// MongoAccountRepository is the MongoDB AccountStore. Writes replace the whole
// document, filtered on the expected version.
type MongoAccountRepository struct {
	collection *mongo.Collection
}

func NewMongoAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{collection: db.Collection(accountsCollection)}
}

// EnsureIndexes creates the lookup indexes used by the list queries.
func (r *MongoAccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "numberAccount", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "debitCardId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create account indexes: %w", err)
	}
	return nil
}

func (r *MongoAccountRepository) Create(ctx context.Context, account *models.Account) error {
	doc, err := toDocument(account)
	if err != nil {
		return err
	}
	doc.Version = 1
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.Version = 1
	return nil
}

func (r *MongoAccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAccountRepository) FindByNumber(ctx context.Context, numberAccount string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"numberAccount": numberAccount})
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var doc accountDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return doc.toModel()
}

func (r *MongoAccountRepository) Update(ctx context.Context, account *models.Account) error {
	doc, err := toDocument(account)
	if err != nil {
		return err
	}
	doc.Version = account.Version + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": account.ID, "version": account.Version}, doc)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.MatchedCount == 0 {
		exists, err := r.Exists(ctx, account.ID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	account.Version = doc.Version
	return nil
}

func (r *MongoAccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return n > 0, nil
}

func (r *MongoAccountRepository) List(ctx context.Context) ([]models.Account, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoAccountRepository) ListByCustomer(ctx context.Context, customerID string) ([]models.Account, error) {
	return r.find(ctx, bson.M{"customerId": customerID})
}

func (r *MongoAccountRepository) ListByCustomerAndType(ctx context.Context, customerID, accountType string) ([]models.Account, error) {
	return r.find(ctx, bson.M{"customerId": customerID, "type": accountType})
}

func (r *MongoAccountRepository) ListByDebitCard(ctx context.Context, debitCardID string) ([]models.Account, error) {
	return r.find(ctx, bson.M{"debitCardId": debitCardID})
}

func (r *MongoAccountRepository) find(ctx context.Context, filter bson.M) ([]models.Account, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var accounts []models.Account
	for cursor.Next(ctx) {
		var doc accountDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode account: %w", err)
		}
		account, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

type accountTypeDocument struct {
	ID          string `bson:"_id"`
	Code        string `bson:"code"`
	Description string `bson:"description"`
}

// MongoAccountTypeRepository reads the account-type catalogue from MongoDB.
type MongoAccountTypeRepository struct {
	collection *mongo.Collection
}

func NewMongoAccountTypeRepository(db *mongo.Database) *MongoAccountTypeRepository {
	return &MongoAccountTypeRepository{collection: db.Collection(accountTypesCollection)}
}

func (r *MongoAccountTypeRepository) Get(ctx context.Context, id string) (*models.AccountType, error) {
	var doc accountTypeDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account type: %w", err)
	}
	code, err := models.ParseAccountTypeCode(doc.Code)
	if err != nil {
		return nil, fmt.Errorf("account type %s: %w", id, err)
	}
	return &models.AccountType{ID: doc.ID, Code: code, Description: doc.Description}, nil
}

// Seed upserts the given account types, leaving existing descriptions in place.
func (r *MongoAccountTypeRepository) Seed(ctx context.Context, types []models.AccountType) error {
	for _, t := range types {
		_, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": t.ID},
			bson.M{"$setOnInsert": bson.M{"code": string(t.Code), "description": t.Description}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to seed account type %s: %w", t.ID, err)
		}
	}
	return nil
}
