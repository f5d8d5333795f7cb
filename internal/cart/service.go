package cart

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/google/uuid"
)

const maxQuantity = 50

type catalogReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Experience, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo    *Repository
	Guests  *GuestStore
	Catalog catalogReader
	Logger  *logger.Logger
	Clock   func() time.Time
}

// Service manages guest and authenticated carts behind one surface. Every
// mutation returns the refreshed cart view.
type Service interface {
	AddToCart(ctx context.Context, owner Owner, input AddInput) (View, error)
	RemoveFromCart(ctx context.Context, owner Owner, experienceID string) (View, error)
	UpdateQuantity(ctx context.Context, owner Owner, experienceID string, quantity int) (View, error)
	UpdateDate(ctx context.Context, owner Owner, experienceID string, date *time.Time) (View, error)
	Clear(ctx context.Context, owner Owner) (View, error)
	View(ctx context.Context, owner Owner) (View, error)
	MergeGuestCart(ctx context.Context, userID uuid.UUID, guestToken string) (View, error)
}

type service struct {
	repo    *Repository
	guests  *GuestStore
	catalog catalogReader
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.Guests == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest cart store is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog reader is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:    params.Repo,
		guests:  params.Guests,
		catalog: params.Catalog,
		logg:    params.Logger,
		now:     clock,
	}, nil
}

// AddToCart writes to the signed-in user's cart, or to the guest cart named
// by the owner's token. A caller with neither must log in. Adding an
// experience already in the cart replaces its quantity and date.
func (s *service) AddToCart(ctx context.Context, owner Owner, input AddInput) (View, error) {
	guest := owner.Mode() == ModeGuest
	if guest && strings.TrimSpace(owner.GuestToken) == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required to add items to the cart")
	}
	id := strings.TrimSpace(input.ExperienceID)
	if id == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "experience_id is required")
	}
	if err := validateQuantity(input.Quantity); err != nil {
		return View{}, err
	}
	if err := s.validateDate(input.SelectedDate); err != nil {
		return View{}, err
	}
	found, err := s.catalog.FindByIDs(ctx, []string{id})
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load experience")
	}
	if _, ok := found[id]; !ok {
		return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "experience not found")
	}

	line := Line{ExperienceID: id, Quantity: input.Quantity, SelectedDate: normalizeDate(input.SelectedDate)}
	if guest {
		if err := s.guests.Put(ctx, owner.GuestToken, line); err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save guest cart item")
		}
		return s.View(ctx, owner)
	}
	if err := s.repo.Upsert(ctx, *owner.UserID, line); err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
	}
	return s.View(ctx, owner)
}

func (s *service) RemoveFromCart(ctx context.Context, owner Owner, experienceID string) (View, error) {
	experienceID = strings.TrimSpace(experienceID)
	switch owner.Mode() {
	case ModeAuthenticated:
		existed, err := s.repo.Remove(ctx, *owner.UserID, experienceID)
		if err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		if !existed {
			return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
	default:
		if err := s.requireGuestLine(ctx, owner.GuestToken, experienceID); err != nil {
			return View{}, err
		}
		if err := s.guests.Remove(ctx, owner.GuestToken, experienceID); err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove guest cart item")
		}
	}
	return s.View(ctx, owner)
}

func (s *service) UpdateQuantity(ctx context.Context, owner Owner, experienceID string, quantity int) (View, error) {
	if err := validateQuantity(quantity); err != nil {
		return View{}, err
	}
	return s.update(ctx, owner, strings.TrimSpace(experienceID), map[string]any{"quantity": quantity}, func(l *Line) {
		l.Quantity = quantity
	})
}

func (s *service) UpdateDate(ctx context.Context, owner Owner, experienceID string, date *time.Time) (View, error) {
	if err := s.validateDate(date); err != nil {
		return View{}, err
	}
	date = normalizeDate(date)
	return s.update(ctx, owner, strings.TrimSpace(experienceID), map[string]any{"selected_date": date}, func(l *Line) {
		l.SelectedDate = date
	})
}

func (s *service) update(ctx context.Context, owner Owner, experienceID string, fields map[string]any, apply func(*Line)) (View, error) {
	switch owner.Mode() {
	case ModeAuthenticated:
		existed, err := s.repo.UpdateFields(ctx, *owner.UserID, experienceID, fields)
		if err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		if !existed {
			return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
	default:
		if strings.TrimSpace(owner.GuestToken) == "" {
			return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		line, err := s.guests.Get(ctx, owner.GuestToken, experienceID)
		if err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		if line == nil {
			return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		apply(line)
		if err := s.guests.Put(ctx, owner.GuestToken, *line); err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update guest cart item")
		}
	}
	return s.View(ctx, owner)
}

func (s *service) Clear(ctx context.Context, owner Owner) (View, error) {
	switch owner.Mode() {
	case ModeAuthenticated:
		if err := s.repo.ClearByUser(ctx, *owner.UserID); err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
	default:
		if strings.TrimSpace(owner.GuestToken) != "" {
			if err := s.guests.Clear(ctx, owner.GuestToken); err != nil {
				return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear guest cart")
			}
		}
	}
	return emptyView(owner.Mode()), nil
}

// View renders the cart. Lines whose listing can no longer be resolved stay in
// the cart with price_pending set and contribute nothing to the total.
func (s *service) View(ctx context.Context, owner Owner) (View, error) {
	lines, err := s.lines(ctx, owner)
	if err != nil {
		return View{}, err
	}
	if len(lines) == 0 {
		return emptyView(owner.Mode()), nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ExperienceID)
	}
	listings, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart listings")
	}

	view := View{Mode: owner.Mode(), Items: make([]LineView, 0, len(lines))}
	for _, l := range lines {
		lv := LineView{
			ExperienceID: l.ExperienceID,
			Quantity:     l.Quantity,
			SelectedDate: l.SelectedDate,
		}
		if exp, ok := listings[l.ExperienceID]; ok {
			item := catalog.FromModel(exp)
			lv.Title = item.Title
			lv.ImageURL = item.ImageURLs[0]
			lv.Location = item.Location
			lv.UnitPrice = item.Price
			lv.LineTotal = item.Price * int64(l.Quantity)
		} else {
			lv.Title = catalog.DefaultTitle
			lv.ImageURL = catalog.PlaceholderImage
			lv.Location = catalog.DefaultLocation
			lv.PricePending = true
			view.PricePending = true
		}
		view.Total += lv.LineTotal
		view.ItemCount += l.Quantity
		view.Items = append(view.Items, lv)
	}
	return view, nil
}

// MergeGuestCart folds a guest cart into the user's cart on sign-in. Guest
// lines overwrite conflicting rows; the guest cart is deleted afterwards.
func (s *service) MergeGuestCart(ctx context.Context, userID uuid.UUID, guestToken string) (View, error) {
	owner := Owner{UserID: &userID}
	guestToken = strings.TrimSpace(guestToken)
	if guestToken == "" {
		return s.View(ctx, owner)
	}
	lines, err := s.guests.List(ctx, guestToken)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	for _, l := range lines {
		if err := s.repo.Upsert(ctx, userID, l); err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge guest cart")
		}
	}
	if err := s.guests.Clear(ctx, guestToken); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "cart.guest_clear_failed: "+err.Error())
	}
	if len(lines) > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "merged_lines": len(lines)})
		s.logg.Info(logCtx, "cart.guest_merged")
	}
	return s.View(ctx, owner)
}

func (s *service) lines(ctx context.Context, owner Owner) ([]Line, error) {
	if owner.Mode() == ModeAuthenticated {
		rows, err := s.repo.ListByUser(ctx, *owner.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		out := make([]Line, 0, len(rows))
		for _, r := range rows {
			out = append(out, Line{ExperienceID: r.ExperienceID, Quantity: r.Quantity, SelectedDate: r.SelectedDate})
		}
		return out, nil
	}
	if strings.TrimSpace(owner.GuestToken) == "" {
		return nil, nil
	}
	lines, err := s.guests.List(ctx, owner.GuestToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	return lines, nil
}

func (s *service) requireGuestLine(ctx context.Context, token, experienceID string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	line, err := s.guests.Get(ctx, token, experienceID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	if line == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) validateDate(date *time.Time) error {
	if date == nil {
		return nil
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if date.UTC().Before(today) {
		return pkgerrors.New(pkgerrors.CodeValidation, "selected_date must not be in the past")
	}
	return nil
}

func validateQuantity(q int) error {
	if q < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if q > maxQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity is too large")
	}
	return nil
}

func normalizeDate(date *time.Time) *time.Time {
	if date == nil {
		return nil
	}
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func emptyView(mode Mode) View {
	return View{Mode: mode, Items: []LineView{}}
}
