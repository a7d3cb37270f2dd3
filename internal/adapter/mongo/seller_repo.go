package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const sellerCollectionName = "sellers"

type SellerMongoRepository struct {
	db *mongo.Database
}

func NewSellerMongoRepository(client *mongo.Client, dbName string) *SellerMongoRepository {
	return &SellerMongoRepository{
		db: client.Database(dbName),
	}
}

type sellerDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	City      string             `bson:"city"`
	CreatedAt primitive.DateTime `bson:"created_at"`
}

func (r *SellerMongoRepository) Create(ctx context.Context, seller *entity.Seller) (string, error) {
	doc := sellerDocument{
		Name:      seller.Name,
		Email:     seller.Email,
		Phone:     seller.Phone,
		City:      seller.City,
		CreatedAt: primitive.NewDateTimeFromTime(seller.CreatedAt),
	}

	res, err := r.db.Collection(sellerCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create seller in mongo: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID")
	}
	return insertedID.Hex(), nil
}

func (r *SellerMongoRepository) GetByID(ctx context.Context, id string) (*entity.Seller, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc sellerDocument
	err = r.db.Collection(sellerCollectionName).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get seller by id from mongo: %w", err)
	}

	return &entity.Seller{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Email:     doc.Email,
		Phone:     doc.Phone,
		City:      doc.City,
		CreatedAt: doc.CreatedAt.Time(),
	}, nil
}
