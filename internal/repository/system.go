package repository

import (
	"context"
	"fmt"

	"github.com/mmcdole/reel/internal/domain"
)

// GetPublicSystemInfo returns the server's public identity
func (r *Repository) GetPublicSystemInfo(ctx context.Context) (domain.SystemInfo, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return domain.SystemInfo{}, err
	}
	defer release()

	info, err := r.remote.GetPublicSystemInfo(ctx)
	observe("GetPublicSystemInfo", err)
	if err != nil {
		return domain.SystemInfo{}, fmt.Errorf("failed to fetch system info: %w", err)
	}
	return info, nil
}

// PostCapabilities announces what this client can play and control
func (r *Repository) PostCapabilities(ctx context.Context) error {
	release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = r.remote.PostCapabilities(ctx)
	observe("PostCapabilities", err)
	if err != nil {
		return fmt.Errorf("failed to post capabilities: %w", err)
	}
	return nil
}

// UpdateDeviceName sets the name this device shows under on the server
func (r *Repository) UpdateDeviceName(ctx context.Context, name string) error {
	sess, release, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = r.remote.UpdateDeviceOptions(ctx, sess.DeviceID, name)
	observe("UpdateDeviceName", err)
	if err != nil {
		return fmt.Errorf("failed to update device name: %w", err)
	}
	return nil
}

// GetUserConfiguration returns the user's server-side playback preferences
func (r *Repository) GetUserConfiguration(ctx context.Context) (domain.UserConfiguration, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return domain.UserConfiguration{}, err
	}
	defer release()

	cfg, err := r.remote.GetUserConfiguration(ctx)
	observe("GetUserConfiguration", err)
	if err != nil {
		return domain.UserConfiguration{}, fmt.Errorf("failed to fetch user configuration: %w", err)
	}
	return cfg, nil
}
