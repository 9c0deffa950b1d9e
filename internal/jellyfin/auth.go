package jellyfin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"golang.org/x/term"
)

const (
	authTimeout = 30 * time.Second
)

// AuthResult is the outcome of a successful login
type AuthResult struct {
	Token    string
	UserID   uuid.UUID
	Username string
	ServerID string
}

// AuthFlow implements Jellyfin username/password authentication
type AuthFlow struct {
	device     Device
	logger     *slog.Logger
	httpClient *http.Client
	in         io.Reader
	out        io.Writer
}

// NewAuthFlow creates a new Jellyfin authentication flow
func NewAuthFlow(device Device, logger *slog.Logger) *AuthFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthFlow{
		device: device,
		logger: logger,
		httpClient: &http.Client{
			Timeout: authTimeout,
		},
		in:  os.Stdin,
		out: os.Stdout,
	}
}

// Run prompts for credentials and authenticates against the server.
// The password is read without echo when stdin is a terminal.
func (f *AuthFlow) Run(ctx context.Context, serverURL string) (*AuthResult, error) {
	serverURL = strings.TrimRight(serverURL, "/")

	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "Jellyfin Authentication")
	fmt.Fprintln(f.out, "━━━━━━━━━━━━━━━━━━━━━━━━")

	reader := bufio.NewReader(f.in)
	fmt.Fprint(f.out, "Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Fprint(f.out, "Password: ")
	var password string
	if file, ok := f.in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		passwordBytes, err := term.ReadPassword(int(file.Fd()))
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		password = string(passwordBytes)
		fmt.Fprintln(f.out) // Add newline after hidden input
	} else {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	fmt.Fprintln(f.out, "Authenticating...")

	result, err := f.Authenticate(ctx, serverURL, username, password)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(f.out, "Authentication successful!")
	return result, nil
}

// Authenticate performs the AuthenticateByName call
func (f *AuthFlow) Authenticate(ctx context.Context, serverURL, username, password string) (*AuthResult, error) {
	bodyBytes, err := json.Marshal(map[string]string{
		"Username": username,
		"Pw":       password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/Users/AuthenticateByName", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Authorization", buildAuthHeader(f.device, "")) // No token yet

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Error("jellyfin auth request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}

	if resp.StatusCode != http.StatusOK {
		f.logger.Error("jellyfin auth error", "status", resp.StatusCode, "body", string(respBody))
		return nil, &domain.ServerError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var authResp AuthResponse
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}

	userID, err := uuid.Parse(authResp.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user id %q: %w", authResp.User.ID, err)
	}

	return &AuthResult{
		Token:    authResp.AccessToken,
		UserID:   userID,
		Username: authResp.User.Name,
		ServerID: authResp.ServerID,
	}, nil
}

// buildAuthHeader constructs the X-Emby-Authorization header
func buildAuthHeader(device Device, token string) string {
	name := device.Name
	if name == "" {
		name = "CLI"
	}
	parts := []string{
		fmt.Sprintf(`MediaBrowser Client="%s"`, clientName),
		fmt.Sprintf(`Device="%s"`, name),
		fmt.Sprintf(`DeviceId="%s"`, device.ID),
		fmt.Sprintf(`Version="%s"`, clientVersion),
	}

	if token != "" {
		parts = append(parts, fmt.Sprintf(`Token="%s"`, token))
	}

	return strings.Join(parts, ", ")
}

// PromptForServerURL prompts the user to enter a Jellyfin server URL
func PromptForServerURL() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Enter your Jellyfin server URL (e.g., http://192.168.1.100:8096): ")
	url, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(url), nil
}
