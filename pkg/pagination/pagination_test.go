package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	assert.Equal(t, DefaultLimit, Params{}.Size())
	assert.Equal(t, 7, Params{Limit: 7}.Size())
	assert.Equal(t, MaxLimit, Params{Limit: 5000}.Size())
	assert.Equal(t, MaxLimit+1, Params{Limit: 5000}.FetchSize())
}

func TestCursorRoundTripKeepsNanoseconds(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 2, 14, 9, 30, 0, 123456789, time.UTC), ID: uuid.New()}
	got, err := Params{Cursor: want.String()}.After()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)
}

func TestAfterRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"%%%", "bm9kb3Q", "MTIzLm5vdC1hLXV1aWQ"} {
		_, err := Params{Cursor: raw}.After()
		assert.ErrorIs(t, err, ErrInvalidCursor, raw)
	}
	c, err := Params{Cursor: "  "}.After()
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestTrim(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Cursor{
		{CreatedAt: base.Add(3 * time.Minute), ID: uuid.New()},
		{CreatedAt: base.Add(2 * time.Minute), ID: uuid.New()},
		{CreatedAt: base.Add(time.Minute), ID: uuid.New()},
	}
	identity := func(c Cursor) Cursor { return c }

	page, next := Trim(rows, 2, identity)
	assert.Len(t, page, 2)
	assert.Equal(t, rows[1].String(), next)

	page, next = Trim(rows, 3, identity)
	assert.Len(t, page, 3)
	assert.Empty(t, next)
}
