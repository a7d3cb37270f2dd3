package mongo

import (
	"context"
	"fmt"

	"github.com/wheelmarket/listing-service/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const imageCollectionName = "listing_images"

type ImageMongoRepository struct {
	db *mongo.Database
}

func NewImageMongoRepository(client *mongo.Client, dbName string) *ImageMongoRepository {
	return &ImageMongoRepository{
		db: client.Database(dbName),
	}
}

type imageDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ListingID  string             `bson:"listing_id"`
	URL        string             `bson:"url"`
	StorageKey string             `bson:"storage_key"`
	CreatedAt  primitive.DateTime `bson:"created_at"`
}

func toImageEntity(doc *imageDocument) entity.Image {
	return entity.Image{
		ID:         doc.ID.Hex(),
		ListingID:  doc.ListingID,
		URL:        doc.URL,
		StorageKey: doc.StorageKey,
		CreatedAt:  doc.CreatedAt.Time(),
	}
}

func (r *ImageMongoRepository) Add(ctx context.Context, image *entity.Image) (string, error) {
	doc := imageDocument{
		ListingID:  image.ListingID,
		URL:        image.URL,
		StorageKey: image.StorageKey,
		CreatedAt:  primitive.NewDateTimeFromTime(image.CreatedAt),
	}

	res, err := r.db.Collection(imageCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert image in mongo: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID")
	}
	return insertedID.Hex(), nil
}

func (r *ImageMongoRepository) ListByListing(ctx context.Context, listingID string) ([]entity.Image, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.db.Collection(imageCollectionName).Find(ctx, bson.M{"listing_id": listingID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list images from mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []imageDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}

	images := make([]entity.Image, len(docs))
	for i, doc := range docs {
		images[i] = toImageEntity(&doc)
	}
	return images, nil
}

func (r *ImageMongoRepository) CountByListing(ctx context.Context, listingID string) (int64, error) {
	count, err := r.db.Collection(imageCollectionName).CountDocuments(ctx, bson.M{"listing_id": listingID})
	if err != nil {
		return 0, fmt.Errorf("failed to count images in mongo: %w", err)
	}
	return count, nil
}

func (r *ImageMongoRepository) DeleteByListing(ctx context.Context, listingID string) (int64, error) {
	res, err := r.db.Collection(imageCollectionName).DeleteMany(ctx, bson.M{"listing_id": listingID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete images from mongo: %w", err)
	}
	return res.DeletedCount, nil
}
