package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const listingCollectionName = "listings"

type ListingMongoRepository struct {
	db *mongo.Database
}

func NewListingMongoRepository(client *mongo.Client, dbName string) *ListingMongoRepository {
	return &ListingMongoRepository{
		db: client.Database(dbName),
	}
}

type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	SellerID    string             `bson:"seller_id"`
	Category    string             `bson:"category"`
	Brand       string             `bson:"brand"`
	Model       string             `bson:"model"`
	Year        int                `bson:"year"`
	KmDriven    int                `bson:"km_driven"`
	FuelType    string             `bson:"fuel_type"`
	Price       float64            `bson:"price"`
	Location    string             `bson:"location"`
	Description string             `bson:"description,omitempty"`
	Active      bool               `bson:"active"`
	CreatedAt   primitive.DateTime `bson:"created_at"`
	UpdatedAt   primitive.DateTime `bson:"updated_at"`
}

func toListingDocument(l *entity.Listing) (*listingDocument, error) {
	doc := &listingDocument{
		SellerID:    l.SellerID,
		Category:    string(l.Category),
		Brand:       l.Brand,
		Model:       l.Model,
		Year:        l.Year,
		KmDriven:    l.KmDriven,
		FuelType:    string(l.FuelType),
		Price:       l.Price,
		Location:    l.Location,
		Description: l.Description,
		Active:      l.Active,
		CreatedAt:   primitive.NewDateTimeFromTime(l.CreatedAt),
		UpdatedAt:   primitive.NewDateTimeFromTime(l.UpdatedAt),
	}
	if l.ID != "" {
		objID, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid listing ID format: %w", err)
		}
		doc.ID = objID
	}
	return doc, nil
}

func toListingEntity(doc *listingDocument) *entity.Listing {
	return &entity.Listing{
		ID:          doc.ID.Hex(),
		SellerID:    doc.SellerID,
		Category:    entity.Category(doc.Category),
		Brand:       doc.Brand,
		Model:       doc.Model,
		Year:        doc.Year,
		KmDriven:    doc.KmDriven,
		FuelType:    entity.FuelType(doc.FuelType),
		Price:       doc.Price,
		Location:    doc.Location,
		Description: doc.Description,
		Active:      doc.Active,
		CreatedAt:   doc.CreatedAt.Time(),
		UpdatedAt:   doc.UpdatedAt.Time(),
	}
}

func (r *ListingMongoRepository) Create(ctx context.Context, listing *entity.Listing) (string, error) {
	doc, err := toListingDocument(listing)
	if err != nil {
		return "", err
	}

	res, err := r.db.Collection(listingCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create listing in mongo: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID")
	}
	return insertedID.Hex(), nil
}

func (r *ListingMongoRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc listingDocument
	err = r.db.Collection(listingCollectionName).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing by id from mongo: %w", err)
	}
	return toListingEntity(&doc), nil
}

func (r *ListingMongoRepository) SetActive(ctx context.Context, id string, active bool) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"active":     active,
		"updated_at": primitive.NewDateTimeFromTime(time.Now()),
	}}
	res, err := r.db.Collection(listingCollectionName).UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update listing active flag in mongo: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ListingMongoRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.db.Collection(listingCollectionName).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete listing from mongo: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// buildListingFilter translates a normalized query into a mongo filter
// document. Keyword matching is a case-insensitive substring over brand,
// model and location.
func buildListingFilter(query repository.ListingQuery) bson.M {
	filter := bson.M{}
	if query.OnlyActive {
		filter["active"] = true
	}
	if query.Category != "" {
		filter["category"] = string(query.Category)
	}
	if query.Fuel != "" {
		filter["fuel_type"] = string(query.Fuel)
	}
	if query.Keyword != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query.Keyword), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"brand": pattern},
			bson.M{"model": pattern},
			bson.M{"location": pattern},
		}
	}
	price := bson.M{}
	if query.MinPrice != nil {
		price["$gte"] = *query.MinPrice
	}
	if query.MaxPrice != nil {
		price["$lte"] = *query.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

func (r *ListingMongoRepository) Search(ctx context.Context, query repository.ListingQuery) ([]*entity.Listing, error) {
	findOptions := options.Find()
	// Newest first; equal timestamps keep insertion order.
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if query.Limit > 0 {
		findOptions.SetLimit(query.Limit)
	}

	cursor, err := r.db.Collection(listingCollectionName).Find(ctx, buildListingFilter(query), findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings in mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode listing search results: %w", err)
	}

	listings := make([]*entity.Listing, len(docs))
	for i, doc := range docs {
		listings[i] = toListingEntity(&doc)
	}
	return listings, nil
}

func (r *ListingMongoRepository) ListBySeller(ctx context.Context, sellerID string) ([]*entity.Listing, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := r.db.Collection(listingCollectionName).Find(ctx, bson.M{"seller_id": sellerID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller listings from mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode seller listings: %w", err)
	}

	listings := make([]*entity.Listing, len(docs))
	for i, doc := range docs {
		listings[i] = toListingEntity(&doc)
	}
	return listings, nil
}

func (r *ListingMongoRepository) CountActive(ctx context.Context, sellerID string) (int64, error) {
	count, err := r.db.Collection(listingCollectionName).CountDocuments(ctx, bson.M{
		"seller_id": sellerID,
		"active":    true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active listings in mongo: %w", err)
	}
	return count, nil
}

func (r *ListingMongoRepository) FindActiveCreatedBefore(ctx context.Context, cutoff time.Time) ([]*entity.Listing, error) {
	filter := bson.M{
		"active":     true,
		"created_at": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	}

	cursor, err := r.db.Collection(listingCollectionName).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale listings in mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode stale listings: %w", err)
	}

	listings := make([]*entity.Listing, len(docs))
	for i, doc := range docs {
		listings[i] = toListingEntity(&doc)
	}
	return listings, nil
}
