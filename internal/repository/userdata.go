package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/metrics"
)

// mutate commits a user-state change locally, then pushes it to the server.
// A failed push flags the row for the reconciler instead of failing the call.
// An unauthorized push also marks the session as expired.
func (r *Repository) mutate(
	ctx context.Context,
	op string,
	itemID uuid.UUID,
	apply func(*domain.UserData),
	push func(context.Context) error,
) error {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := r.store.MutateUserData(sess.UserID, itemID, apply); err != nil {
		return fmt.Errorf("failed to save %s locally: %w", op, err)
	}

	pushErr := push(ctx)
	observe(op, pushErr)
	r.sessionExpired.Store(errors.Is(pushErr, domain.ErrAuthFailed))
	if pushErr == nil {
		return nil
	}

	if _, err := r.store.MutateUserData(sess.UserID, itemID, func(ud *domain.UserData) {
		ud.ToBeSynced = true
	}); err != nil {
		return fmt.Errorf("failed to flag %s for sync: %w", itemID, err)
	}
	metrics.SyncFlagsRaised.WithLabelValues(op).Inc()
	r.logger.Warn("remote update failed, queued for sync",
		"op", op, "itemID", itemID, "userID", sess.UserID, "error", pushErr)
	return nil
}

// MarkAsFavorite marks an item as a favourite
func (r *Repository) MarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	return r.mutate(ctx, "MarkAsFavorite", itemID,
		func(ud *domain.UserData) { ud.Favorite = true },
		func(ctx context.Context) error { return r.remote.MarkFavorite(ctx, itemID) },
	)
}

// UnmarkAsFavorite removes an item from the favourites
func (r *Repository) UnmarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	return r.mutate(ctx, "UnmarkAsFavorite", itemID,
		func(ud *domain.UserData) { ud.Favorite = false },
		func(ctx context.Context) error { return r.remote.UnmarkFavorite(ctx, itemID) },
	)
}

// MarkAsPlayed marks an item as watched
func (r *Repository) MarkAsPlayed(ctx context.Context, itemID uuid.UUID) error {
	return r.mutate(ctx, "MarkAsPlayed", itemID,
		func(ud *domain.UserData) { ud.Played = true },
		func(ctx context.Context) error { return r.remote.MarkPlayed(ctx, itemID) },
	)
}

// MarkAsUnplayed marks an item as not watched
func (r *Repository) MarkAsUnplayed(ctx context.Context, itemID uuid.UUID) error {
	return r.mutate(ctx, "MarkAsUnplayed", itemID,
		func(ud *domain.UserData) { ud.Played = false },
		func(ctx context.Context) error { return r.remote.MarkUnplayed(ctx, itemID) },
	)
}

// PostPlaybackProgress stores the resume position and reports it to the server
func (r *Repository) PostPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, isPaused bool) error {
	return r.mutate(ctx, "PostPlaybackProgress", itemID,
		func(ud *domain.UserData) { ud.PlaybackPositionTicks = positionTicks },
		func(ctx context.Context) error {
			return r.remote.ReportPlaybackProgress(ctx, itemID, positionTicks, isPaused)
		},
	)
}

// PostPlaybackStop records the end of playback. Stops below 10% reset the
// item to unwatched, stops above 90% mark it watched, and anything in
// between keeps positionTicks as the resume point.
func (r *Repository) PostPlaybackStop(ctx context.Context, itemID uuid.UUID, positionTicks int64, playedPercentage int) error {
	position, played := domain.ApplyPlaybackStop(positionTicks, playedPercentage)
	return r.mutate(ctx, "PostPlaybackStop", itemID,
		func(ud *domain.UserData) {
			ud.PlaybackPositionTicks = position
			ud.Played = played
			if played {
				ud.PlayCount++
			}
		},
		func(ctx context.Context) error {
			return r.remote.ReportPlaybackStopped(ctx, itemID, positionTicks)
		},
	)
}

// PostPlaybackStart reports that playback began. Failures are returned.
func (r *Repository) PostPlaybackStart(ctx context.Context, itemID uuid.UUID) error {
	release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = r.remote.ReportPlaybackStart(ctx, itemID)
	observe("PostPlaybackStart", err)
	if err != nil {
		return fmt.Errorf("failed to report playback start for %s: %w", itemID, err)
	}
	return nil
}
