package bookings

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/pagination"
)

// Service reads a user's bookings.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, userID, bookingID uuid.UUID) (*Detail, error)
}

type service struct {
	repo *Repository
}

// NewService builds the bookings service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bookings repo is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	cursor, err := params.After()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByUser(ctx, userID, cursor, params.FetchSize())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}

	rows, next := pagination.Trim(rows, params.Size(), bookingCursor)

	items := make([]Detail, len(rows))
	for i := range rows {
		items[i] = ToDetail(&rows[i])
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) Get(ctx context.Context, userID, bookingID uuid.UUID) (*Detail, error) {
	booking, err := s.repo.FindForUser(ctx, userID, bookingID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	detail := ToDetail(booking)
	return &detail, nil
}

func bookingCursor(b models.Booking) pagination.Cursor {
	return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
}
