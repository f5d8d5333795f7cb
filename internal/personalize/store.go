package personalize

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/redis"
	"github.com/google/uuid"
)

const (
	defaultSessionTTL = 2 * time.Hour
	defaultLockTTL    = 45 * time.Second
	lockScope         = "wizard"
)

// Store keeps wizard sessions in Redis and serializes transitions per wizard.
type Store struct {
	rdb        *redis.Client
	sessionTTL time.Duration
	lockTTL    time.Duration

	// refreshEvery is how often a held lock has its TTL pushed forward.
	refreshEvery time.Duration
}

// NewStore builds a session store. Zero TTLs fall back to defaults.
func NewStore(rdb *redis.Client, sessionTTL, lockTTL time.Duration) *Store {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Store{rdb: rdb, sessionTTL: sessionTTL, lockTTL: lockTTL, refreshEvery: lockTTL / 3}
}

// Load fetches a session.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	raw, err := s.rdb.Get(ctx, s.rdb.WizardKey(id.String()))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "personalization session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load personalization session")
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode personalization session")
	}
	return &sess, nil
}

// Save writes the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode personalization session")
	}
	if err := s.rdb.Set(ctx, s.rdb.WizardKey(sess.ID.String()), payload, s.sessionTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save personalization session")
	}
	return nil
}

// Delete discards a session.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, s.rdb.WizardKey(id.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete personalization session")
	}
	return nil
}

// Lock claims the single transition slot for a wizard. A held slot yields
// CONFLICT. The slot carries a random token and is kept alive until the
// returned release func runs; release only deletes the slot it still owns.
func (s *Store) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	key := s.rdb.LockKey(lockScope, id.String())
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, key, token, s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire wizard lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another step is already in progress")
	}

	bg := context.WithoutCancel(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepAlive(bg, key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			_, _ = s.rdb.DeleteIfValue(bg, key, token)
		})
	}, nil
}

// keepAlive pushes the lock TTL forward until stop closes or the token is
// no longer the holder.
func (s *Store) keepAlive(ctx context.Context, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := s.rdb.ExpireIfValue(ctx, key, token, s.lockTTL)
			if err == nil && !held {
				return
			}
		}
	}
}
