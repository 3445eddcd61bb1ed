package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/toxic-toad/aquaventure/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("accounts"),
	}
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) Create(ctx context.Context, account domain.Account) error {
	if _, err := m.collection.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailInUse
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (m *MongoRepository) FindByID(ctx context.Context, id string) (domain.Account, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoRepository) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *MongoRepository) findOne(ctx context.Context, filter bson.M) (domain.Account, error) {
	var account domain.Account
	err := m.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (m *MongoRepository) Update(ctx context.Context, account domain.Account) error {
	res, err := m.collection.ReplaceOne(ctx, bson.M{"_id": account.ID}, account)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}
