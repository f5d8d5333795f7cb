package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/geo"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/personalizer"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListLimit   = 24
	maxListLimit       = 100
	// maxCandidates bounds the rows loaded for in-memory location filtering.
	maxCandidates      = 1000
	resolveConcurrency = 4
)

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo          *Repository
	Logger        *logger.Logger
	DefaultRadius float64
}

// Service exposes catalog reads and the coordinate write used by backfills.
type Service interface {
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context, filters ListFilters) (ListResult, error)
	ResolveSuggestions(ctx context.Context, suggestions []personalizer.Suggestion) ([]Item, error)
	UpdateCoordinates(ctx context.Context, id string, lat, lng float64) error
}

type service struct {
	repo          *Repository
	logg          *logger.Logger
	defaultRadius float64
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	radius := params.DefaultRadius
	if radius <= 0 {
		radius = geo.DefaultRadiusKM
	}
	return &service{
		repo:          params.Repo,
		logg:          params.Logger,
		defaultRadius: radius,
	}, nil
}

// Get returns one listing by primary key.
func (s *service) Get(ctx context.Context, id string) (Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "experience id is required")
	}
	exp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "experience not found")
		}
		return Item{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load experience")
	}
	return FromModel(*exp), nil
}

// List pages in SQL when no location is given. Near and City load a bounded
// candidate set (a bounding box around Near, a location match for City) and
// rank or filter it in memory.
func (s *service) List(ctx context.Context, filters ListFilters) (ListResult, error) {
	if filters.MinPrice != nil && filters.MaxPrice != nil && *filters.MinPrice > *filters.MaxPrice {
		return ListResult{}, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}
	if filters.Near != nil && !filters.Near.Valid() {
		return ListResult{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	switch {
	case filters.Near != nil:
		radius := filters.RadiusKM
		if radius <= 0 {
			radius = s.defaultRadius
		}
		rows, err := s.repo.ListWithin(ctx, filters, geo.BoundingBox(*filters.Near, radius), maxCandidates)
		if err != nil {
			return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list experiences")
		}
		ranked := geo.FilterByProximity(fromModels(rows), *filters.Near, radius, Item.Point)
		items := make([]Item, 0, len(ranked))
		for _, r := range ranked {
			d := r.DistanceKM
			r.Item.DistanceKM = &d
			items = append(items, r.Item)
		}
		return page(items, limit, offset), nil
	case strings.TrimSpace(filters.City) != "":
		rows, err := s.repo.ListInCity(ctx, filters, filters.City, maxCandidates)
		if err != nil {
			return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list experiences")
		}
		items := geo.FilterByCity(fromModels(rows), filters.City, func(i Item) string { return i.Location })
		return page(items, limit, offset), nil
	}

	rows, total, err := s.repo.ListPage(ctx, filters, limit, offset)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list experiences")
	}
	return ListResult{Items: fromModels(rows), Total: int(total), Limit: limit, Offset: offset}, nil
}

func fromModels(rows []models.Experience) []Item {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return items
}

// page slices an in-memory result set.
func page(items []Item, limit, offset int) ListResult {
	total := len(items)
	if offset >= total {
		return ListResult{Items: []Item{}, Total: total, Limit: limit, Offset: offset}
	}
	end := min(offset+limit, total)
	return ListResult{Items: items[offset:end], Total: total, Limit: limit, Offset: offset}
}

// ResolveSuggestions maps recommendation payloads to display items, preserving
// order. Suggestions carrying a catalog id are looked up concurrently; lookups
// that miss or fail fall back to normalizing the payload itself.
func (s *service) ResolveSuggestions(ctx context.Context, suggestions []personalizer.Suggestion) ([]Item, error) {
	out := make([]Item, len(suggestions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	for i, sug := range suggestions {
		id := sug.CatalogID()
		if id == "" {
			out[i] = Normalize(sug)
			continue
		}
		g.Go(func() error {
			exp, err := s.repo.FindByID(gctx, id)
			switch {
			case err == nil:
				out[i] = FromModel(*exp)
			case db.IsNotFound(err):
				out[i] = Normalize(sug)
			default:
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logg.Warn(s.logg.WithField(gctx, "experience_id", id), "catalog.resolve_fallback: "+err.Error())
				out[i] = Normalize(sug)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCoordinates validates and stores coordinates for one listing.
func (s *service) UpdateCoordinates(ctx context.Context, id string, lat, lng float64) error {
	if !(geo.Point{Lat: lat, Lng: lng}).Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}
	if err := s.repo.UpdateCoordinates(ctx, id, lat, lng); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "experience not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coordinates")
	}
	return nil
}
