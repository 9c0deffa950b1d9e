// Package player hands stream URLs and downloaded files to an external media player.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ErrNoPlayer is returned when no player could be started
var ErrNoPlayer = errors.New("no media player found")

// launchPath is one way to start a player. Paths of the form "open-a:App"
// go through the macOS open command.
type launchPath struct {
	path      string
	openFlags []string
}

type playerInfo struct {
	offsetFlag string
	platforms  map[string][]launchPath
}

var players = map[string]playerInfo{
	"mpv": {
		offsetFlag: "--start=",
		platforms: map[string][]launchPath{
			"darwin":  {{path: "mpv"}},
			"linux":   {{path: "mpv"}},
			"windows": {{path: "mpv"}},
		},
	},
	"vlc": {
		offsetFlag: "--start-time=",
		platforms: map[string][]launchPath{
			"darwin":  {{path: "vlc"}, {path: "open-a:VLC"}},
			"linux":   {{path: "vlc"}},
			"windows": {{path: "vlc"}},
		},
	},
	"iina": {
		offsetFlag: "--mpv-start=",
		platforms: map[string][]launchPath{
			"darwin": {{path: "open-a:IINA", openFlags: []string{"-n"}}},
		},
	},
	"celluloid": {
		offsetFlag: "--mpv-start=",
		platforms: map[string][]launchPath{
			"linux": {{path: "celluloid"}},
		},
	},
	"potplayer": {
		offsetFlag: "/seek=",
		platforms: map[string][]launchPath{
			"windows": {{path: "PotPlayerMini64.exe"}, {path: "PotPlayerMini.exe"}},
		},
	},
}

// candidates is the detection order per platform
var candidates = map[string][]string{
	"darwin":  {"iina", "vlc", "mpv"},
	"linux":   {"mpv", "celluloid", "vlc"},
	"windows": {"vlc", "mpv", "potplayer"},
}

// Launcher starts a configured or detected player
type Launcher struct {
	command   string
	args      []string
	startFlag string
	logger    *slog.Logger

	goos     string
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// NewLauncher creates a launcher. An empty command selects the first
// installed candidate player. An empty startFlag is inferred for known players.
func NewLauncher(command string, args []string, startFlag string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	if startFlag == "" && command != "" {
		if p, ok := players[playerName(command)]; ok {
			startFlag = p.offsetFlag
			logger.Debug("detected player offset flag", "player", playerName(command), "flag", startFlag)
		}
	}
	return &Launcher{
		command:   command,
		args:      args,
		startFlag: startFlag,
		logger:    logger,
		goos:      runtime.GOOS,
		lookPath:  exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Launch opens target (a URL or a local file) at offset.
// It returns the name of the program that was started.
func (l *Launcher) Launch(target string, offset time.Duration) (string, error) {
	if l.command != "" {
		args := append(append([]string{}, l.args...), offsetArgs(l.startFlag, offset)...)
		if offset > 0 && l.startFlag == "" {
			l.logger.Warn("cannot set start offset for unknown player, configure player.start_flag",
				"command", l.command, "offset", offset)
		}
		if err := l.run(launchPath{path: l.command}, target, args); err != nil {
			return "", fmt.Errorf("failed to launch %s: %w", l.command, err)
		}
		l.logger.Info("launched configured player", "command", l.command, "target", target)
		return l.command, nil
	}

	order, ok := candidates[l.goos]
	if !ok {
		order = candidates["linux"]
	}
	for _, name := range order {
		p := players[name]
		for _, lp := range p.platforms[l.goos] {
			err := l.run(lp, target, offsetArgs(p.offsetFlag, offset))
			if err == nil {
				l.logger.Info("launched detected player", "player", name, "path", lp.path)
				return name, nil
			}
			l.logger.Debug("launch path not available", "player", name, "path", lp.path, "error", err)
		}
	}
	return "", ErrNoPlayer
}

func (l *Launcher) run(lp launchPath, target string, args []string) error {
	if app, ok := strings.CutPrefix(lp.path, "open-a:"); ok {
		return l.start("open", openArgs(app, lp.openFlags, args, target)...)
	}
	if _, err := l.lookPath(lp.path); err != nil {
		// GUI apps on macOS are often not on PATH
		if l.goos == "darwin" {
			return l.start("open", openArgs(lp.path, nil, args, target)...)
		}
		return err
	}
	return l.start(lp.path, append(args, target)...)
}

func openArgs(app string, openFlags, playerArgs []string, target string) []string {
	out := append([]string{}, openFlags...)
	out = append(out, "-a", app)
	if len(playerArgs) > 0 {
		out = append(out, "--args")
		out = append(out, playerArgs...)
	}
	return append(out, target)
}

// offsetArgs renders the resume offset. Flags ending in a space ("-ss ")
// take the value as a separate argument.
func offsetArgs(flag string, offset time.Duration) []string {
	if offset <= 0 || flag == "" {
		return nil
	}
	secs := fmt.Sprintf("%.0f", offset.Seconds())
	if trimmed, ok := strings.CutSuffix(flag, " "); ok {
		return []string{trimmed, secs}
	}
	return []string{flag + secs}
}

func playerName(command string) string {
	base := filepath.Base(command)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
