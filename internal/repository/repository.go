// Package repository decides, for every read, whether to trust the media
// server or the local cache, and for every write, how to apply it locally and
// queue it for later reconciliation when the server cannot be reached.
package repository

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/metrics"
	"github.com/mmcdole/reel/internal/profile"
	"github.com/mmcdole/reel/internal/search"
	"github.com/mmcdole/reel/internal/trickplay"
	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize bounds concurrent blocking I/O when no pool size is configured
const DefaultPoolSize = 64

// Repository is the single entry point for catalog reads, playback
// negotiation and user-state mutations.
type Repository struct {
	remote     domain.RemoteClient
	store      domain.Store
	negotiator *profile.Negotiator
	tiles      *trickplay.Cache
	search     *search.Service
	sessions   domain.SessionSource
	pool       *semaphore.Weighted
	logger     *slog.Logger

	// set when a queued write was rejected as unauthorized
	sessionExpired atomic.Bool
}

// New creates a repository. poolSize bounds how many operations may hold
// network or disk I/O at once; values <= 0 select DefaultPoolSize.
func New(
	remote domain.RemoteClient,
	store domain.Store,
	negotiator *profile.Negotiator,
	tiles *trickplay.Cache,
	sessions domain.SessionSource,
	poolSize int,
	logger *slog.Logger,
) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if negotiator == nil {
		negotiator = profile.NewNegotiator(remote, "", logger)
	}
	return &Repository{
		remote:     remote,
		store:      store,
		negotiator: negotiator,
		tiles:      tiles,
		search:     search.NewService(store, logger),
		sessions:   sessions,
		pool:       semaphore.NewWeighted(int64(poolSize)),
		logger:     logger,
	}
}

// acquire takes one I/O slot, waiting until one frees up or ctx is done
func (r *Repository) acquire(ctx context.Context) (func(), error) {
	if err := r.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { r.pool.Release(1) }, nil
}

// begin takes an I/O slot and reads the session the call runs under
func (r *Repository) begin(ctx context.Context) (domain.Session, func(), error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return domain.Session{}, nil, err
	}
	sess, err := r.sessions.Session()
	if err != nil {
		release()
		return domain.Session{}, nil, err
	}
	return sess, release, nil
}

// observe records the outcome of one remote call
func observe(op string, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAuthFailed):
		outcome = metrics.OutcomeAuth
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeFailure
	}
	metrics.RemoteRequests.WithLabelValues(op, outcome).Inc()
}

// withFallback runs remote and, when it fails with a remote failure, serves
// local instead. If local has nothing the remote error is returned.
// Authentication failures always propagate.
func withFallback[T any](
	logger *slog.Logger,
	op string,
	remote func() (T, error),
	local func() (T, bool, error),
) (T, error) {
	v, err := remote()
	observe(op, err)
	if err == nil || !domain.IsRemoteFailure(err) {
		return v, err
	}

	cached, ok, lerr := local()
	if lerr != nil {
		logger.Error("cache read failed during fallback", "op", op, "error", lerr)
	}
	if !ok || lerr != nil {
		return v, err
	}

	metrics.CacheFallbacks.WithLabelValues(op).Inc()
	logger.Warn("serving cached data after remote failure", "op", op, "error", err)
	return cached, nil
}

// BaseURL returns the server address of the current session
func (r *Repository) BaseURL() string {
	sess, _ := r.sessions.Session()
	return sess.BaseURL
}

// UserID returns the user of the current session, or uuid.Nil when logged out
func (r *Repository) UserID() uuid.UUID {
	sess, _ := r.sessions.Session()
	return sess.UserID
}

// DeviceID returns the device id of the current session
func (r *Repository) DeviceID() string {
	sess, _ := r.sessions.Session()
	return sess.DeviceID
}

// AccessToken returns the access token of the current session
func (r *Repository) AccessToken() string {
	sess, _ := r.sessions.Session()
	return sess.AccessToken
}

// SessionExpired reports whether the server rejected the session token on
// the most recent user-state push. Callers use it to prompt a new login.
func (r *Repository) SessionExpired() bool {
	return r.sessionExpired.Load()
}
