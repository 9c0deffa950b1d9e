// Package syncer pushes user state that could not reach the server when it
// was changed, and clears the pending-sync flag once the server has it.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/metrics"
	"github.com/thejerf/suture/v4"
)

// DefaultInterval is the time between reconciliation passes
const DefaultInterval = 15 * time.Minute

var _ suture.Service = (*Syncer)(nil)

// Result summarizes one reconciliation pass
type Result struct {
	Pending int
	Cleared int
	Failed  int
	// Superseded rows were pushed but changed locally during the push
	Superseded int
}

// Syncer periodically reconciles flagged user data rows
type Syncer struct {
	remote   domain.RemoteClient
	store    domain.Store
	sessions domain.SessionSource
	interval time.Duration
	logger   *slog.Logger
}

// New creates a syncer. An interval <= 0 selects DefaultInterval.
func New(remote domain.RemoteClient, store domain.Store, sessions domain.SessionSource, interval time.Duration, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Syncer{
		remote:   remote,
		store:    store,
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}
}

// Serve implements suture.Service. It runs a pass immediately and then once
// per interval until ctx is canceled.
func (s *Syncer) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SyncOnce(ctx); err != nil {
			if errors.Is(err, domain.ErrAuthFailed) {
				s.logger.Warn("sync skipped, not logged in", "error", err)
			} else if ctx.Err() == nil {
				s.logger.Error("sync pass failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String implements fmt.Stringer for supervisor logs
func (s *Syncer) String() string {
	return "user-data-syncer"
}

// SyncOnce pushes every flagged row of the current user. A row's flag is
// cleared only if the row was not changed again while it was being pushed.
// Rows that fail to push stay flagged for the next pass.
func (s *Syncer) SyncOnce(ctx context.Context) (Result, error) {
	sess, err := s.sessions.Session()
	if err != nil {
		return Result{}, err
	}

	pending, err := s.store.ListToBeSynced(sess.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list pending user data: %w", err)
	}

	res := Result{Pending: len(pending)}
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := s.push(ctx, row); err != nil {
			res.Failed++
			s.logger.Warn("failed to sync user data", "itemID", row.ItemID, "userID", row.UserID, "error", err)
			if errors.Is(err, domain.ErrAuthFailed) {
				return res, err
			}
			continue
		}

		cleared, err := s.store.ClearToBeSynced(row.UserID, row.ItemID, row.UserData.Revision)
		if err != nil {
			res.Failed++
			s.logger.Error("failed to clear sync flag", "itemID", row.ItemID, "error", err)
			continue
		}
		if !cleared {
			res.Superseded++
			s.logger.Debug("user data changed during sync, keeping flag", "itemID", row.ItemID)
			continue
		}
		res.Cleared++
		metrics.SyncFlagsCleared.Inc()
	}

	if res.Pending > 0 {
		s.logger.Info("sync pass complete", "pending", res.Pending, "cleared", res.Cleared,
			"failed", res.Failed, "superseded", res.Superseded)
	}
	return res, nil
}

// push sends the full state of one row
func (s *Syncer) push(ctx context.Context, row domain.PendingUserData) error {
	ud := row.UserData

	favorite := s.remote.UnmarkFavorite
	if ud.Favorite {
		favorite = s.remote.MarkFavorite
	}
	if err := favorite(ctx, row.ItemID); err != nil {
		return fmt.Errorf("favorite: %w", err)
	}

	played := s.remote.MarkUnplayed
	if ud.Played {
		played = s.remote.MarkPlayed
	}
	if err := played(ctx, row.ItemID); err != nil {
		return fmt.Errorf("played: %w", err)
	}

	if !ud.Played && ud.PlaybackPositionTicks > 0 {
		if err := s.remote.ReportPlaybackStopped(ctx, row.ItemID, ud.PlaybackPositionTicks); err != nil {
			return fmt.Errorf("position: %w", err)
		}
	}
	return nil
}
