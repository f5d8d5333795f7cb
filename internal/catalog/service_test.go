package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/angelmondragon/giftbox-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/geo"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/personalizer"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func floatPtr(v float64) *float64 { return &v }

func seedExperiences(t *testing.T, conn *gorm.DB) {
	t.Helper()
	rows := []models.Experience{
		{ID: "koramangala-pottery", Title: "Pottery workshop", Category: "Workshops", Price: 1800, Location: "Koramangala, Bengaluru", Latitude: floatPtr(12.9352), Longitude: floatPtr(77.6245), ImageURLs: pq.StringArray{"https://cdn.test/pottery.jpg"}, IsActive: true},
		{ID: "mg-road-tasting", Title: "Coffee tasting", Category: "Food", Price: 950, Location: "MG Road, Bengaluru", Latitude: floatPtr(12.9756), Longitude: floatPtr(77.6050), IsActive: true},
		{ID: "mumbai-sail", Title: "Sunset sail", Category: "Adventure", Price: 4200, Location: "Gateway of India, Mumbai", Latitude: floatPtr(18.9220), Longitude: floatPtr(72.8347), IsActive: true},
		{ID: "bengaluru-stargazing", Title: "Stargazing night", Category: "Adventure", Price: 2500, Location: "Bengaluru outskirts", IsActive: true},
		{ID: "retired-spa", Title: "Spa day", Category: "Wellness", Price: 3000, Location: "Indiranagar, Bengaluru", IsActive: false},
	}
	require.NoError(t, conn.Create(&rows).Error)
	// is_active carries a column default, so a false value is skipped on insert.
	require.NoError(t, conn.Model(&models.Experience{}).Where("id = ?", "retired-spa").Update("is_active", false).Error)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	seedExperiences(t, conn)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, conn
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetReturnsActiveListing(t *testing.T) {
	svc, _ := newTestService(t)

	item, err := svc.Get(context.Background(), "koramangala-pottery")
	require.NoError(t, err)
	assert.Equal(t, "Pottery workshop", item.Title)
	assert.Equal(t, []string{"https://cdn.test/pottery.jpg"}, item.ImageURLs)

	_, err = svc.Get(context.Background(), "retired-spa")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListFiltersByCategoryPriceAndQuery(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.List(ctx, ListFilters{Category: "adventure"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	maxPrice := int64(2000)
	res, err = svc.List(ctx, ListFilters{MaxPrice: &maxPrice})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	res, err = svc.List(ctx, ListFilters{Query: "SAIL"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "mumbai-sail", res.Items[0].ID)

	minPrice := int64(5000)
	_, err = svc.List(ctx, ListFilters{MinPrice: &minPrice, MaxPrice: &maxPrice})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListRanksByProximity(t *testing.T) {
	svc, _ := newTestService(t)
	bengaluru := geo.Point{Lat: 12.9716, Lng: 77.5946}

	res, err := svc.List(context.Background(), ListFilters{Near: &bengaluru})
	require.NoError(t, err)
	require.Len(t, res.Items, 2, "mumbai and the listing without coordinates are excluded")
	assert.Equal(t, "mg-road-tasting", res.Items[0].ID)
	assert.Equal(t, "koramangala-pottery", res.Items[1].ID)
	require.NotNil(t, res.Items[0].DistanceKM)
	assert.Less(t, *res.Items[0].DistanceKM, *res.Items[1].DistanceKM)

	res, err = svc.List(context.Background(), ListFilters{Near: &bengaluru, RadiusKM: 1000})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, "mumbai-sail", res.Items[2].ID)
}

func TestListFiltersByCityText(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.List(context.Background(), ListFilters{City: "bengaluru", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Items, 2)

	res, err = svc.List(context.Background(), ListFilters{City: "bengaluru", Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestResolveSuggestionsPreservesOrderAndFallsBack(t *testing.T) {
	svc, _ := newTestService(t)

	items, err := svc.ResolveSuggestions(context.Background(), []personalizer.Suggestion{
		{"id": "mumbai-sail"},
		{"title": "Calligraphy kit", "photo": "https://cdn.test/ink.jpg"},
		{"experience_id": "unknown-listing", "title": "Mystery box"},
		{"product_id": "koramangala-pottery"},
	})
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "Sunset sail", items[0].Title)
	assert.Equal(t, SourceCatalog, items[0].Source)

	assert.Equal(t, "Calligraphy kit", items[1].Title)
	assert.Equal(t, []string{"https://cdn.test/ink.jpg"}, items[1].ImageURLs)
	assert.Equal(t, SourceSuggestion, items[1].Source)

	assert.Equal(t, "Mystery box", items[2].Title)
	assert.Equal(t, "unknown-listing", items[2].ID)
	assert.Equal(t, DefaultLocation, items[2].Location)

	assert.Equal(t, "koramangala-pottery", items[3].ID)
}

func TestUpdateCoordinates(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdateCoordinates(ctx, "bengaluru-stargazing", 13.2, 77.7))
	var exp models.Experience
	require.NoError(t, conn.First(&exp, "id = ?", "bengaluru-stargazing").Error)
	require.NotNil(t, exp.Latitude)
	assert.InDelta(t, 13.2, *exp.Latitude, 1e-9)

	err := svc.UpdateCoordinates(ctx, "bengaluru-stargazing", 120, 77.7)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.UpdateCoordinates(ctx, "nope", 13, 77)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryListMissingCoordinates(t *testing.T) {
	conn := dbtest.Open(t)
	seedExperiences(t, conn)
	repo := NewRepository(conn)

	rows, err := repo.ListMissingCoordinates(context.Background(), 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"bengaluru-stargazing", "retired-spa"}, ids)
}

// captureQueries records the SQL of every experiences SELECT run on conn.
func captureQueries(t *testing.T, conn *gorm.DB) *[]string {
	t.Helper()
	var sqls []string
	require.NoError(t, conn.Callback().Query().After("gorm:query").Register("test:capture", func(tx *gorm.DB) {
		if tx.Statement.Table == "experiences" {
			sqls = append(sqls, tx.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...))
		}
	}))
	return &sqls
}

func TestListPagesInSQL(t *testing.T) {
	svc, conn := newTestService(t)
	extra := make([]models.Experience, 0, 30)
	for i := 0; i < 30; i++ {
		extra = append(extra, models.Experience{ID: fmt.Sprintf("food-walk-%02d", i), Title: "Food walk", Category: "Food", Price: 700, Location: "Pune", IsActive: true})
	}
	require.NoError(t, conn.Create(&extra).Error)
	sqls := captureQueries(t, conn)

	res, err := svc.List(context.Background(), ListFilters{Limit: 5, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 34, res.Total)
	assert.Len(t, res.Items, 5)

	var paged int
	for _, q := range *sqls {
		if strings.Contains(strings.ToLower(q), "count(") {
			continue
		}
		paged++
		assert.Contains(t, q, "LIMIT 5")
		assert.Contains(t, q, "OFFSET 2")
	}
	assert.Equal(t, 1, paged)

	res, err = svc.List(context.Background(), ListFilters{Category: "food", Offset: 100})
	require.NoError(t, err)
	assert.Equal(t, 31, res.Total)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
}

func TestListNearOnlyLoadsTheBoundingBox(t *testing.T) {
	svc, conn := newTestService(t)
	sqls := captureQueries(t, conn)
	bengaluru := geo.Point{Lat: 12.9716, Lng: 77.5946}

	_, err := svc.List(context.Background(), ListFilters{Near: &bengaluru})
	require.NoError(t, err)
	require.Len(t, *sqls, 1)
	assert.Contains(t, (*sqls)[0], "latitude BETWEEN")
	assert.Contains(t, (*sqls)[0], "longitude BETWEEN")
	assert.Contains(t, (*sqls)[0], fmt.Sprintf("LIMIT %d", maxCandidates))

	rows, err := NewRepository(conn).ListWithin(context.Background(), ListFilters{}, geo.BoundingBox(bengaluru, 40), 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"koramangala-pottery", "mg-road-tasting"}, ids)
}

func TestListInCityIsBounded(t *testing.T) {
	conn := dbtest.Open(t)
	seedExperiences(t, conn)
	repo := NewRepository(conn)

	rows, err := repo.ListInCity(context.Background(), ListFilters{}, " Bengaluru ", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.ListInCity(context.Background(), ListFilters{Category: "adventure"}, "mumbai", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "mumbai-sail", rows[0].ID)
}
