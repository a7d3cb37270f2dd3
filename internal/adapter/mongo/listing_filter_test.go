package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheelmarket/listing-service/internal/entity"
	"github.com/wheelmarket/listing-service/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildListingFilter_ActiveOnly(t *testing.T) {
	filter := buildListingFilter(repository.ListingQuery{OnlyActive: true})

	assert.Equal(t, bson.M{"active": true}, filter)
}

func TestBuildListingFilter_KeywordSearchesBrandModelLocation(t *testing.T) {
	filter := buildListingFilter(repository.ListingQuery{Keyword: "Maruti", OnlyActive: true})

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok, "keyword must expand to an $or clause")
	require.Len(t, or, 3)

	fields := make([]string, 0, 3)
	for _, clause := range or {
		m := clause.(bson.M)
		for field, v := range m {
			fields = append(fields, field)
			rx, isRegex := v.(primitive.Regex)
			require.True(t, isRegex)
			assert.Equal(t, "Maruti", rx.Pattern)
			assert.Equal(t, "i", rx.Options, "keyword match is case-insensitive")
		}
	}
	assert.ElementsMatch(t, []string{"brand", "model", "location"}, fields,
		"the keyword never matches against the description")
}

func TestBuildListingFilter_KeywordEscapesRegexMeta(t *testing.T) {
	filter := buildListingFilter(repository.ListingQuery{Keyword: "C+ (rare)"})

	or := filter["$or"].(bson.A)
	rx := or[0].(bson.M)["brand"].(primitive.Regex)
	assert.Equal(t, `C\+ \(rare\)`, rx.Pattern)
}

func TestBuildListingFilter_PriceRange(t *testing.T) {
	min, max := 100000.0, 500000.0

	filter := buildListingFilter(repository.ListingQuery{MinPrice: &min, MaxPrice: &max})
	assert.Equal(t, bson.M{"$gte": min, "$lte": max}, filter["price"])

	filter = buildListingFilter(repository.ListingQuery{MinPrice: &min})
	assert.Equal(t, bson.M{"$gte": min}, filter["price"])

	filter = buildListingFilter(repository.ListingQuery{MaxPrice: &max})
	assert.Equal(t, bson.M{"$lte": max}, filter["price"])

	filter = buildListingFilter(repository.ListingQuery{})
	assert.NotContains(t, filter, "price")
}

func TestBuildListingFilter_CategoryAndFuel(t *testing.T) {
	filter := buildListingFilter(repository.ListingQuery{
		Category:   entity.CategoryCar,
		Fuel:       entity.FuelDiesel,
		OnlyActive: true,
	})

	assert.Equal(t, "car", filter["category"])
	assert.Equal(t, "diesel", filter["fuel_type"])
	assert.Equal(t, true, filter["active"])
}
