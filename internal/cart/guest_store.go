package cart

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/angelmondragon/giftbox-backend/pkg/redis"
)

const defaultGuestTTL = 30 * 24 * time.Hour

// GuestStore keeps anonymous carts in a Redis hash keyed by the guest token,
// one field per experience id.
type GuestStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGuestStore builds a guest cart store; ttl ≤ 0 uses 30 days.
func NewGuestStore(rdb *redis.Client, ttl time.Duration) *GuestStore {
	if ttl <= 0 {
		ttl = defaultGuestTTL
	}
	return &GuestStore{rdb: rdb, ttl: ttl}
}

type guestEntry struct {
	Quantity     int        `json:"q"`
	SelectedDate *time.Time `json:"d,omitempty"`
	AddedAt      time.Time  `json:"t"`
}

// List returns the guest cart in insertion order.
func (g *GuestStore) List(ctx context.Context, token string) ([]Line, error) {
	entries, err := g.entries(ctx, token)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := entries[ids[i]].AddedAt, entries[ids[j]].AddedAt
		if a.Equal(b) {
			return ids[i] < ids[j]
		}
		return a.Before(b)
	})
	out := make([]Line, 0, len(ids))
	for _, id := range ids {
		e := entries[id]
		out = append(out, Line{ExperienceID: id, Quantity: e.Quantity, SelectedDate: e.SelectedDate})
	}
	return out, nil
}

// Get returns one line, or nil when the cart has no such entry.
func (g *GuestStore) Get(ctx context.Context, token, experienceID string) (*Line, error) {
	entries, err := g.entries(ctx, token)
	if err != nil {
		return nil, err
	}
	e, ok := entries[experienceID]
	if !ok {
		return nil, nil
	}
	return &Line{ExperienceID: experienceID, Quantity: e.Quantity, SelectedDate: e.SelectedDate}, nil
}

// Put writes one line and refreshes the cart TTL. An existing line keeps its
// position.
func (g *GuestStore) Put(ctx context.Context, token string, line Line) error {
	entries, err := g.entries(ctx, token)
	if err != nil {
		return err
	}
	addedAt := time.Now().UTC()
	if existing, ok := entries[line.ExperienceID]; ok {
		addedAt = existing.AddedAt
	}
	payload, err := json.Marshal(guestEntry{Quantity: line.Quantity, SelectedDate: line.SelectedDate, AddedAt: addedAt})
	if err != nil {
		return err
	}
	return g.rdb.HSet(ctx, g.rdb.GuestCartKey(token), g.ttl, line.ExperienceID, string(payload))
}

func (g *GuestStore) entries(ctx context.Context, token string) (map[string]guestEntry, error) {
	fields, err := g.rdb.HGetAll(ctx, g.rdb.GuestCartKey(token))
	if err != nil {
		return nil, err
	}
	out := make(map[string]guestEntry, len(fields))
	for id, raw := range fields {
		var e guestEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.Quantity < 1 {
			continue
		}
		out[id] = e
	}
	return out, nil
}

// Remove deletes one line.
func (g *GuestStore) Remove(ctx context.Context, token, experienceID string) error {
	return g.rdb.HDel(ctx, g.rdb.GuestCartKey(token), experienceID)
}

// Clear deletes the whole guest cart.
func (g *GuestStore) Clear(ctx context.Context, token string) error {
	return g.rdb.Del(ctx, g.rdb.GuestCartKey(token))
}
