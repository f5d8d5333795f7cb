package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	fsys, err := Source("")
	require.NoError(t, err)
	require.NoError(t, Validate(fsys))
}

func TestEmbeddedMigrationsCreateEveryTable(t *testing.T) {
	fsys, err := Source(DefaultDir)
	require.NoError(t, err)

	files, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	var all strings.Builder
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		require.NoError(t, err)
		all.Write(data)
	}
	content := all.String()

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE TABLE IF NOT EXISTS experiences",
		"CREATE TABLE IF NOT EXISTS cart_items",
		"CONSTRAINT cart_items_user_experience_key UNIQUE (user_id, experience_id)",
		"CONSTRAINT wishlists_user_experience_key UNIQUE (user_id, experience_id)",
		"order_id text NOT NULL UNIQUE",
		"gateway_payment_id text NOT NULL UNIQUE",
		"'expired'",
		"CREATE TABLE IF NOT EXISTS booking_items",
		"ux_outbox_events_event_aggregate",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
	} {
		assert.Contains(t, content, want)
	}
}

func TestValidateRejectsBadFiles(t *testing.T) {
	good := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {
			"001_init.sql": {Data: []byte(good)},
		},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte(good)},
			"20260101000000_b.sql": {Data: []byte(good)},
		},
		"missing down": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
		"down before up": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		},
		"empty": {},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Validate(fsys))
		})
	}
}

func TestCreateWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

	path, err := Create(dir, "Add Gift Notes!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260504030201_add_gift_notes.sql"), path)

	fsys, err := Source(dir)
	require.NoError(t, err)
	require.NoError(t, Validate(fsys))

	_, err = Create(dir, "add gift notes", now)
	assert.Error(t, err, "same version must not be overwritten")

	_, err = Create(dir, "!!!", now)
	assert.Error(t, err)
}

func TestSourceRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.sql")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err := Source(file)
	assert.Error(t, err)
}
