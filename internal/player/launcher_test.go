package player

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type startCall struct {
	name string
	args []string
}

// fakeExec records started commands; only names in installed are on PATH
func fakeExec(l *Launcher, goos string, installed ...string) *[]startCall {
	calls := &[]startCall{}
	l.goos = goos
	l.lookPath = func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	l.start = func(name string, args ...string) error {
		*calls = append(*calls, startCall{name, args})
		return nil
	}
	return calls
}

func TestConfiguredPlayerInfersStartFlag(t *testing.T) {
	l := NewLauncher("/usr/local/bin/mpv", []string{"--fs"}, "", nil)
	calls := fakeExec(l, "linux", "/usr/local/bin/mpv")

	got, err := l.Launch("http://srv/stream", 90*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/usr/local/bin/mpv" {
		t.Errorf("player = %q", got)
	}
	want := []startCall{{"/usr/local/bin/mpv", []string{"--fs", "--start=90", "http://srv/stream"}}}
	if !reflect.DeepEqual(*calls, want) {
		t.Errorf("calls = %+v, want %+v", *calls, want)
	}
}

func TestSeparateOffsetArgument(t *testing.T) {
	l := NewLauncher("ffplay", nil, "-ss ", nil)
	calls := fakeExec(l, "linux", "ffplay")

	if _, err := l.Launch("/media/movie.mkv", 2*time.Minute); err != nil {
		t.Fatal(err)
	}
	want := []string{"-ss", "120", "/media/movie.mkv"}
	if !reflect.DeepEqual((*calls)[0].args, want) {
		t.Errorf("args = %v, want %v", (*calls)[0].args, want)
	}
}

func TestConfiguredPlayerMissing(t *testing.T) {
	l := NewLauncher("mpv", nil, "", nil)
	fakeExec(l, "linux")

	if _, err := l.Launch("http://srv/stream", 0); err == nil {
		t.Error("expected error for missing player")
	}
}

func TestDetectsFirstInstalledCandidate(t *testing.T) {
	l := NewLauncher("", nil, "", nil)
	calls := fakeExec(l, "linux", "vlc")

	got, err := l.Launch("http://srv/stream", 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got != "vlc" {
		t.Errorf("player = %q, want vlc", got)
	}
	want := []startCall{{"vlc", []string{"--start-time=30", "http://srv/stream"}}}
	if !reflect.DeepEqual(*calls, want) {
		t.Errorf("calls = %+v", *calls)
	}
}

func TestDarwinOpensAppBundle(t *testing.T) {
	l := NewLauncher("", nil, "", nil)
	calls := fakeExec(l, "darwin")

	got, err := l.Launch("http://srv/stream", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != "iina" {
		t.Errorf("player = %q, want iina", got)
	}
	want := startCall{"open", []string{"-n", "-a", "IINA", "http://srv/stream"}}
	if !reflect.DeepEqual((*calls)[0], want) {
		t.Errorf("call = %+v, want %+v", (*calls)[0], want)
	}
}

func TestNoPlayer(t *testing.T) {
	l := NewLauncher("", nil, "", nil)
	fakeExec(l, "windows")

	if _, err := l.Launch("http://srv/stream", 0); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("err = %v, want ErrNoPlayer", err)
	}
}
