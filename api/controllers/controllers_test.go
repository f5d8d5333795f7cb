package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/api/middleware"
	"github.com/angelmondragon/giftbox-backend/internal/bookings"
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/internal/checkout"
	"github.com/angelmondragon/giftbox-backend/internal/wishlist"
	"github.com/angelmondragon/giftbox-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/pagination"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftbox-backend/pkg/personalizer"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

type stubCatalog struct {
	filters catalog.ListFilters
}

func (s *stubCatalog) Get(_ context.Context, id string) (catalog.Item, error) {
	if id != "pottery" {
		return catalog.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "experience not found")
	}
	return catalog.Item{ID: id}, nil
}

func (s *stubCatalog) List(_ context.Context, filters catalog.ListFilters) (catalog.ListResult, error) {
	s.filters = filters
	return catalog.ListResult{}, nil
}

func (s *stubCatalog) ResolveSuggestions(context.Context, []personalizer.Suggestion) ([]catalog.Item, error) {
	return nil, nil
}

func (s *stubCatalog) UpdateCoordinates(context.Context, string, float64, float64) error {
	return nil
}

func TestExperienceListParsesFilters(t *testing.T) {
	svc := &stubCatalog{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/experiences?category=workshops&min_price=500&lat=12.97&lng=77.59&radius_km=15&city=Mumbai", nil)
	ExperienceList(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	f := svc.filters
	if f.Category != "workshops" || f.MinPrice == nil || *f.MinPrice != 500 {
		t.Fatalf("unexpected filters %+v", f)
	}
	if f.Near == nil || f.Near.Lat != 12.97 || f.Near.Lng != 77.59 {
		t.Fatalf("expected proximity filter, got %+v", f.Near)
	}
	if f.City != "" {
		t.Fatalf("city should be ignored when coordinates are given, got %q", f.City)
	}
	if f.Limit != 20 {
		t.Fatalf("expected default limit 20, got %d", f.Limit)
	}
}

func TestExperienceListRequiresCoordinatePair(t *testing.T) {
	rec := httptest.NewRecorder()
	ExperienceList(&stubCatalog{}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/experiences?lat=12.9", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExperienceGetNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/experiences/{experienceId}", ExperienceGet(&stubCatalog{}, testLogger()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/experiences/skydive", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected code %s", code)
	}
}

type stubCart struct {
	cart.Service
	owner cart.Owner
	input cart.AddInput
	date  *time.Time
}

func (s *stubCart) AddToCart(_ context.Context, owner cart.Owner, input cart.AddInput) (cart.View, error) {
	s.owner, s.input = owner, input
	return cart.View{Mode: owner.Mode()}, nil
}

func (s *stubCart) UpdateDate(_ context.Context, owner cart.Owner, _ string, date *time.Time) (cart.View, error) {
	s.owner, s.date = owner, date
	return cart.View{Mode: owner.Mode()}, nil
}

func (s *stubCart) View(_ context.Context, owner cart.Owner) (cart.View, error) {
	s.owner = owner
	return cart.View{Mode: owner.Mode()}, nil
}

func TestCartViewUsesGuestToken(t *testing.T) {
	svc := &stubCart{}
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req = req.WithContext(middleware.WithGuestToken(req.Context(), "guest-abc"))
	rec := httptest.NewRecorder()
	CartView(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.owner.GuestToken != "guest-abc" || svc.owner.UserID != nil {
		t.Fatalf("unexpected owner %+v", svc.owner)
	}
}

func TestCartAddParsesSelectedDate(t *testing.T) {
	svc := &stubCart{}
	userID := uuid.New()
	req := withUser(httptest.NewRequest(http.MethodPost, "/cart/items",
		strings.NewReader(`{"experience_id":"pottery","quantity":2,"selected_date":"2026-12-24"}`)), userID)
	rec := httptest.NewRecorder()
	CartAdd(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.owner.UserID == nil || *svc.owner.UserID != userID {
		t.Fatalf("expected authenticated owner, got %+v", svc.owner)
	}
	if svc.input.SelectedDate == nil || svc.input.SelectedDate.Format(dateLayout) != "2026-12-24" {
		t.Fatalf("unexpected date %v", svc.input.SelectedDate)
	}
	if svc.input.Quantity != 2 || svc.input.ExperienceID != "pottery" {
		t.Fatalf("unexpected input %+v", svc.input)
	}
}

func TestCartAddRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"bad date":      `{"experience_id":"pottery","quantity":1,"selected_date":"24/12/2026"}`,
		"zero quantity": `{"experience_id":"pottery","quantity":0}`,
		"missing id":    `{"quantity":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			CartAdd(&stubCart{}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestCartUpdateDateClears(t *testing.T) {
	svc := &stubCart{date: &time.Time{}}
	r := chi.NewRouter()
	r.Patch("/cart/items/{experienceId}/date", CartUpdateDate(svc, testLogger()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/cart/items/pottery/date", strings.NewReader(`{"selected_date":null}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.date != nil {
		t.Fatalf("expected date cleared, got %v", svc.date)
	}
}

type stubCheckout struct {
	result *checkout.Result
	err    error
	got    string
}

func (s *stubCheckout) Checkout(_ context.Context, _ uuid.UUID, paymentID string) (*checkout.Result, error) {
	s.got = paymentID
	return s.result, s.err
}

func (s *stubCheckout) CompleteVerified(context.Context, payloads.PaymentVerifiedEvent) (*checkout.Result, error) {
	return nil, errors.New("not used")
}

func TestCheckoutStatusReflectsReplay(t *testing.T) {
	tests := []struct {
		name     string
		replayed bool
		status   int
	}{
		{name: "first completion", status: http.StatusCreated},
		{name: "replay", replayed: true, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubCheckout{result: &checkout.Result{Success: true, Replayed: tt.replayed}}
			req := withUser(httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"payment_id":"pay_1"}`)), uuid.New())
			rec := httptest.NewRecorder()
			Checkout(svc, testLogger()).ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if svc.got != "pay_1" {
				t.Fatalf("payment id not forwarded: %q", svc.got)
			}
		})
	}
}

func TestCheckoutRequiresLogin(t *testing.T) {
	rec := httptest.NewRecorder()
	Checkout(&stubCheckout{}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"payment_id":"pay_1"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

type stubBookings struct {
	params pagination.Params
}

func (s *stubBookings) List(_ context.Context, _ uuid.UUID, params pagination.Params) (*bookings.ListResult, error) {
	s.params = params
	return &bookings.ListResult{}, nil
}

func (s *stubBookings) Get(context.Context, uuid.UUID, uuid.UUID) (*bookings.Detail, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
}

func TestBookingsListPassesPaging(t *testing.T) {
	svc := &stubBookings{}
	req := withUser(httptest.NewRequest(http.MethodGet, "/bookings?limit=5&cursor=abc", nil), uuid.New())
	rec := httptest.NewRecorder()
	BookingsList(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.params.Limit != 5 || svc.params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.params)
	}
}

func TestBookingGetRejectsBadID(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/bookings/{bookingId}", BookingGet(&stubBookings{}, testLogger()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/bookings/not-a-uuid", nil), uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/bookings/"+uuid.NewString(), nil), uuid.New()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

type stubWishlist struct {
	wishlist.Service
	added string
}

func (s *stubWishlist) AddItem(_ context.Context, _ uuid.UUID, experienceID string) error {
	s.added = experienceID
	return nil
}

func TestWishlistAdd(t *testing.T) {
	svc := &stubWishlist{}
	req := withUser(httptest.NewRequest(http.MethodPost, "/wishlist", strings.NewReader(`{"experience_id":"pottery"}`)), uuid.New())
	rec := httptest.NewRecorder()
	WishlistAdd(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if svc.added != "pottery" {
		t.Fatalf("unexpected experience %q", svc.added)
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), ok, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Giftbox-Env") != "test" {
		t.Fatalf("missing env header")
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, testLogger(), ok, down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
