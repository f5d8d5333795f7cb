package wishlist

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/pagination"
)

type catalogReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Experience, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Repo    *Repository
	Catalog catalogReader
}

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (PageDTO, error)
	IDs(ctx context.Context, userID uuid.UUID) (IDsDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, experienceID string) error
	RemoveItem(ctx context.Context, userID uuid.UUID, experienceID string) error
}

type service struct {
	repo    *Repository
	catalog catalogReader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog reader is required")
	}
	return &service{repo: params.Repo, catalog: params.Catalog}, nil
}

// List returns the user's saved experiences, newest first. Rows whose
// experience has since been withdrawn are skipped.
func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (PageDTO, error) {
	if userID == uuid.Nil {
		return PageDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	cursor, err := params.After()
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListItems(ctx, userID, cursor, params.FetchSize())
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	rows, next := pagination.Trim(rows, params.Size(), wishlistCursor)

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ExperienceID
	}
	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load experiences")
	}

	items := make([]ItemDTO, 0, len(rows))
	for _, row := range rows {
		exp, ok := found[row.ExperienceID]
		if !ok {
			continue
		}
		items = append(items, ItemDTO{Experience: catalog.FromModel(exp), CreatedAt: row.CreatedAt})
	}
	return PageDTO{Items: items, Cursor: next}, nil
}

func (s *service) IDs(ctx context.Context, userID uuid.UUID) (IDsDTO, error) {
	if userID == uuid.Nil {
		return IDsDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	ids, err := s.repo.ListExperienceIDs(ctx, userID)
	if err != nil {
		return IDsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist ids")
	}
	if ids == nil {
		ids = []string{}
	}
	return IDsDTO{ExperienceIDs: ids}, nil
}

// AddItem ensures the experience exists and adds it to the wishlist.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, experienceID string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	experienceID = strings.TrimSpace(experienceID)
	if experienceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "experience id is required")
	}
	found, err := s.catalog.FindByIDs(ctx, []string{experienceID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load experience")
	}
	if _, ok := found[experienceID]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "experience not found")
	}
	if _, err := s.repo.AddItem(ctx, userID, experienceID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist item")
	}
	return nil
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, experienceID string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if _, err := s.repo.RemoveItem(ctx, userID, strings.TrimSpace(experienceID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

func wishlistCursor(item models.WishlistItem) pagination.Cursor {
	return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
}
