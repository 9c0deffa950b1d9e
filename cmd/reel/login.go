package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/config"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/jellyfin"
)

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

// runLogin asks for a server and credentials and stores the resulting session
func runLogin(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Welcome to Reel!"))
	fmt.Println()

	device := jellyfin.Device{ID: cfg.Device.ID, Name: cfg.Device.Name}

	// Loop until we reach a server
	var (
		serverURL string
		info      domain.SystemInfo
	)
	for {
		input, err := jellyfin.PromptForServerURL()
		if err != nil {
			return err
		}
		if input == "" {
			fmt.Println("Server URL cannot be empty. Please try again.")
			continue
		}

		fmt.Println()
		info, err = checkServerWithSpinner(ctx, input, device, logger)
		if err != nil {
			fmt.Println(ErrorStyle.Render(fmt.Sprintf("✗ Could not reach server: %v", err)))
			fmt.Println("Please check the URL and try again.")
			fmt.Println()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		serverURL = input
		break
	}

	result, err := jellyfin.NewAuthFlow(device, logger).Run(ctx, serverURL)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	cfg.Server.Type = config.SourceTypeJellyfin
	cfg.Server.URL = serverURL
	cfg.Server.Token = result.Token
	cfg.Server.UserID = result.UserID.String()
	cfg.Server.Username = result.Username
	cfg.Server.ServerID = result.ServerID
	if cfg.Server.ServerID == "" {
		cfg.Server.ServerID = info.ID
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	// Announce the device; failures only affect how the server lists us
	if a, err := newApp(cfg, logger); err == nil {
		if err := a.repo.PostCapabilities(ctx); err != nil {
			logger.Warn("failed to post capabilities", "error", err)
		}
		a.Close()
	}

	fmt.Println()
	fmt.Println(SuccessStyle.Render("✓ Configuration saved!"))
	fmt.Printf("Signed in to %s as %s.\n", AccentStyle.Render(info.ServerName), result.Username)
	return nil
}

// checkServerWithSpinner fetches the server's public info with a visual spinner
func checkServerWithSpinner(ctx context.Context, serverURL string, device jellyfin.Device, logger *slog.Logger) (domain.SystemInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	type result struct {
		info domain.SystemInfo
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		client := jellyfin.NewClient(serverURL, "", uuid.Nil, device, logger)
		info, err := client.GetPublicSystemInfo(ctx)
		resultCh <- result{info, err}
	}()

	frame := 0
	fmt.Printf("\r%s Connecting...", SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if res.err != nil {
				return domain.SystemInfo{}, res.err
			}
			if err := jellyfin.CheckProduct(res.info); err != nil {
				return domain.SystemInfo{}, err
			}
			fmt.Println(SuccessStyle.Render(fmt.Sprintf("✓ Found: %s %s", res.info.ServerName, res.info.Version)))
			return res.info, nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Connecting...", SpinnerFrames[frame%len(SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return domain.SystemInfo{}, fmt.Errorf("connection timed out")
		}
	}
}
