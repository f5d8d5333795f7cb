package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/geo"
	"gorm.io/gorm"
)

// Repository encapsulates experience persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads one active experience.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Experience, error) {
	var exp models.Experience
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&exp).Error; err != nil {
		return nil, err
	}
	return &exp, nil
}

// FindByIDs loads the active experiences among ids, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Experience, error) {
	out := make(map[string]models.Experience, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Experience
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// filtered starts a query over active experiences narrowed by the
// SQL-expressible filters.
func (r *Repository) filtered(ctx context.Context, filters ListFilters) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Experience{}).Where("is_active = ?", true)
	if c := strings.TrimSpace(filters.Category); c != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(c))
	}
	if filters.MinPrice != nil {
		q = q.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		q = q.Where("price <= ?", *filters.MaxPrice)
	}
	if term := strings.TrimSpace(filters.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	return q
}

func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("created_at DESC").Order("id ASC")
}

// ListPage returns one newest-first page of matching experiences and the
// total match count.
func (r *Repository) ListPage(ctx context.Context, filters ListFilters, limit, offset int) ([]models.Experience, int64, error) {
	var total int64
	if err := r.filtered(ctx, filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if int64(offset) >= total {
		return nil, total, nil
	}
	var rows []models.Experience
	err := newestFirst(r.filtered(ctx, filters)).Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

// ListWithin returns up to limit matching experiences whose coordinates fall
// inside box.
func (r *Repository) ListWithin(ctx context.Context, filters ListFilters, box geo.Box, limit int) ([]models.Experience, error) {
	q := r.filtered(ctx, filters).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat)
	if box.CrossesAntimeridian() {
		q = q.Where("(longitude >= ? OR longitude <= ?)", box.MinLng, box.MaxLng)
	} else {
		q = q.Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng)
	}
	var rows []models.Experience
	err := newestFirst(q).Limit(limit).Find(&rows).Error
	return rows, err
}

// ListInCity returns up to limit matching experiences whose location mentions city.
func (r *Repository) ListInCity(ctx context.Context, filters ListFilters, city string, limit int) ([]models.Experience, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(city)) + "%"
	var rows []models.Experience
	err := newestFirst(r.filtered(ctx, filters).Where("LOWER(location) LIKE ?", like)).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// UpdateCoordinates stores geocoded coordinates for one listing.
func (r *Repository) UpdateCoordinates(ctx context.Context, id string, lat, lng float64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Experience{}).
		Where("id = ?", id).
		Updates(map[string]any{"latitude": lat, "longitude": lng})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListMissingCoordinates returns listings that have a location but no coordinates.
func (r *Repository) ListMissingCoordinates(ctx context.Context, limit int) ([]models.Experience, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Experience
	err := r.db.WithContext(ctx).
		Where("(latitude IS NULL OR longitude IS NULL) AND location <> ''").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListWithCoordinates returns every listing carrying coordinates.
func (r *Repository) ListWithCoordinates(ctx context.Context) ([]models.Experience, error) {
	var rows []models.Experience
	err := r.db.WithContext(ctx).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
