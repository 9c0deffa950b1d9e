package repository

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/profile"
)

func TestGetMediaSourcesOrdersRemoteFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	itemID := uuid.New()

	f.remote.Playback[itemID] = domain.PlaybackInfo{Sources: []domain.Source{
		{ID: "remote-2", ItemID: itemID, Path: "/media/b.mkv"},
		{ID: "remote-1", ItemID: itemID, Path: "/media/a.mkv"},
	}}
	// Downloaded later but sorting first, to check insertion order is kept
	for _, id := range []string{"zz-first-download", "aa-second-download"} {
		if err := f.store.SaveSource(domain.Source{ID: id, ItemID: itemID, Path: "/downloads/" + id}); err != nil {
			t.Fatal(err)
		}
	}

	sources, err := f.repo.GetMediaSources(ctx, itemID, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"remote-2", "remote-1", "zz-first-download", "aa-second-download"}
	if len(sources) != len(want) {
		t.Fatalf("got %d sources, want %d", len(sources), len(want))
	}
	for i, id := range want {
		if sources[i].ID != id {
			t.Errorf("source %d = %s, want %s", i, sources[i].ID, id)
		}
	}
	if sources[0].Path != "" || sources[0].Origin != domain.SourceRemote {
		t.Errorf("remote source = %+v, want blank path", sources[0])
	}
	if sources[2].Path != "/downloads/zz-first-download" || sources[2].Origin != domain.SourceLocal {
		t.Errorf("local source = %+v", sources[2])
	}

	reqs := f.remote.PlaybackRequests()
	if len(reqs) != 1 || reqs[0].DeviceProfile.Name != "Direct play all" || reqs[0].MaxStreamingBitrate != profile.DirectPlayAllBitrate {
		t.Errorf("playback requests = %+v", reqs)
	}

	sources, _ = f.repo.GetMediaSources(ctx, itemID, true)
	if sources[0].Path != "/media/b.mkv" {
		t.Errorf("path dropped with includePath set: %+v", sources[0])
	}
}

func TestGetMediaSourcesOffline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.SetOffline(true)

	withDownload := uuid.New()
	if err := f.store.SaveSource(domain.Source{ID: "local", ItemID: withDownload}); err != nil {
		t.Fatal(err)
	}

	sources, err := f.repo.GetMediaSources(ctx, withDownload, false)
	if err != nil || len(sources) != 1 || sources[0].ID != "local" {
		t.Errorf("offline with download = %+v, %v", sources, err)
	}

	if _, err := f.repo.GetMediaSources(ctx, uuid.New(), false); !errors.Is(err, domain.ErrServerOffline) {
		t.Errorf("offline without download: err = %v, want ErrServerOffline", err)
	}
}

func streamQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	if raw == "" {
		t.Fatal("empty stream url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u.Query()
}

func TestTranscodedVideoStreamAutoBitrate(t *testing.T) {
	f := newFixture(t)
	q := streamQuery(t, f.repo.GetTranscodedVideoStream(uuid.New(), "device-1", "src", "play-1", domain.AutoBitrate))

	for _, key := range []string{"videoBitRate", "audioBitRate", "transcodeReasons"} {
		if q.Has(key) {
			t.Errorf("auto bitrate url sets %s=%s", key, q.Get(key))
		}
	}
	if q.Get("enableAdaptiveBitrateStreaming") != "true" {
		t.Error("adaptive streaming not enabled")
	}
	assertFixedStreamParams(t, q)
}

func TestTranscodedVideoStreamExplicitBitrate(t *testing.T) {
	f := newFixture(t)
	q := streamQuery(t, f.repo.GetTranscodedVideoStream(uuid.New(), "device-1", "src", "play-1", 4_000_000))

	if q.Get("videoBitRate") != "4000000" || q.Get("audioBitRate") != "128000" {
		t.Errorf("bitrates = %s/%s", q.Get("videoBitRate"), q.Get("audioBitRate"))
	}
	if q.Get("transcodeReasons") != "ContainerBitrateExceedsLimit" {
		t.Errorf("transcodeReasons = %q", q.Get("transcodeReasons"))
	}
	if q.Get("enableAdaptiveBitrateStreaming") != "false" {
		t.Error("adaptive streaming not disabled")
	}
	assertFixedStreamParams(t, q)
}

func assertFixedStreamParams(t *testing.T, q url.Values) {
	t.Helper()
	want := map[string]string{
		"audioCodec":       "aac",
		"videoCodec":       "h264",
		"segmentContainer": "ts",
		"subtitleMethod":   "External",
		"copyTimestamps":   "true",
		"context":          "Streaming",
		"deviceId":         "device-1",
		"mediaSourceId":    "src",
		"playSessionId":    "play-1",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestVideoStreamByContainerURL(t *testing.T) {
	f := newFixture(t)
	raw := f.repo.GetVideoStreamByContainerURL(uuid.New(), "device-1", "src", "play-1", 2_000_000, "mkv", 720)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("static") != "false" || q.Get("videoBitRate") != "2000000" || q.Get("maxHeight") != "720" || q.Get("audioBitRate") != "128000" {
		t.Errorf("query = %v", q)
	}
	if len(u.Path) < 4 || u.Path[len(u.Path)-4:] != ".mkv" {
		t.Errorf("path = %s, want container suffix", u.Path)
	}
}

func TestStreamURLFailureIsEmpty(t *testing.T) {
	f := newFixture(t)
	if got := f.repo.GetStreamURL(uuid.Nil, "src", ""); got != "" {
		t.Errorf("GetStreamURL = %q, want empty", got)
	}
	if got := f.repo.GetTranscodedVideoStream(uuid.Nil, "d", "s", "p", domain.AutoBitrate); got != "" {
		t.Errorf("GetTranscodedVideoStream = %q, want empty", got)
	}

	q := streamQuery(t, f.repo.GetStreamURL(uuid.New(), "src", "play-1"))
	if q.Get("static") != "true" {
		t.Errorf("static stream query = %v", q)
	}
}

func TestBuildDeviceProfileUsesSessionUser(t *testing.T) {
	f := newFixture(t)
	p, err := f.repo.BuildDeviceProfile(120_000_000, "ts", domain.ContextStreaming)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != f.userID.String() || p.TranscodingProfiles[0].Conditions[0].Value != "8000000" {
		t.Errorf("profile = %+v", p)
	}
}
