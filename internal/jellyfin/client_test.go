package jellyfin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

var (
	testUserID = uuid.MustParse("6f1f6d4c-7a62-4f5e-9d1c-2b1f0e5a9c01")
	testDevice = Device{ID: "device-1", Name: "Test Device"}
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "secret-token", testUserID, testDevice, nil)
	c.retryDelay = time.Millisecond
	return c, srv
}

func TestGetItemMapsEpisode(t *testing.T) {
	itemID := uuid.New()
	seasonID := uuid.New()
	seriesID := uuid.New()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/Users/" + testUserID.String() + "/Items/" + itemID.String()
		if r.URL.Path != wantPath {
			t.Errorf("path = %s, want %s", r.URL.Path, wantPath)
		}
		auth := r.Header.Get("X-Emby-Authorization")
		if !strings.Contains(auth, `Token="secret-token"`) || !strings.Contains(auth, `DeviceId="device-1"`) {
			t.Errorf("unexpected auth header %q", auth)
		}
		json.NewEncoder(w).Encode(Item{
			ID:                strings.ReplaceAll(itemID.String(), "-", ""),
			Name:              "Pilot",
			Type:              "Episode",
			SeriesID:          seriesID.String(),
			SeasonID:          seasonID.String(),
			ParentIndexNumber: 1,
			IndexNumber:       1,
			UserData:          &UserData{IsFavorite: true, PlaybackPositionTicks: 42},
			MediaSources: []MediaSource{
				{ID: "a", Container: "mkv", MediaStreams: []MediaStream{{Type: "Video", Codec: "hevc"}, {Type: "Audio", Codec: "eac3"}}},
				{ID: "b", Container: "mp4"},
			},
		})
	})

	item, err := c.GetItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item.ID != itemID || item.Kind != domain.KindEpisode {
		t.Fatalf("unexpected identity: %s %v", item.ID, item.Kind)
	}
	if item.Episode == nil || item.Episode.SeasonID != seasonID || item.EpisodeCode() != "S01E01" {
		t.Errorf("unexpected episode payload: %+v", item.Episode)
	}
	if item.ContainerID() != seasonID {
		t.Errorf("ContainerID = %s, want season %s", item.ContainerID(), seasonID)
	}
	if !item.UserData.Favorite || item.UserData.PlaybackPositionTicks != 42 {
		t.Errorf("user data not mapped: %+v", item.UserData)
	}
	if len(item.Sources) != 2 || item.Sources[0].ID != "a" || item.Sources[1].ID != "b" {
		t.Fatalf("sources = %+v", item.Sources)
	}
	if item.Sources[0].VideoCodec != "hevc" || item.Sources[0].AudioCodec != "eac3" {
		t.Errorf("codecs not derived from streams: %+v", item.Sources[0])
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, func(err error) bool { return errors.Is(err, domain.ErrAuthFailed) }},
		{"not found", http.StatusNotFound, func(err error) bool { return errors.Is(err, domain.ErrItemNotFound) }},
		{"bad request", http.StatusBadRequest, func(err error) bool {
			var se *domain.ServerError
			return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.GetItem(context.Background(), uuid.New())
			if !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestServerErrorRetries(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(SystemInfo{ID: "srv", ServerName: "Home"})
	})

	info, err := c.GetPublicSystemInfo(context.Background())
	if err != nil {
		t.Fatalf("GetPublicSystemInfo: %v", err)
	}
	if info.ServerName != "Home" || hits.Load() != 3 {
		t.Errorf("info=%+v hits=%d", info, hits.Load())
	}
}

func TestCheckProduct(t *testing.T) {
	tests := []struct {
		product string
		ok      bool
	}{
		{"Jellyfin Server", true},
		{"", true},
		{"Emby Server", false},
	}
	for _, tt := range tests {
		err := CheckProduct(domain.SystemInfo{ProductName: tt.product})
		if (err == nil) != tt.ok {
			t.Errorf("CheckProduct(%q) = %v", tt.product, err)
		}
	}
}

func TestUnreachableServerIsOffline(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.GetUserViews(context.Background())
	if !errors.Is(err, domain.ErrServerOffline) {
		t.Fatalf("err = %v, want ErrServerOffline", err)
	}
	if !domain.IsRemoteFailure(err) {
		t.Error("offline error must count as a remote failure")
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		if _, err := c.GetPublicSystemInfo(context.Background()); err == nil {
			t.Fatal("expected failure")
		}
	}
	before := hits.Load()

	_, err := c.GetPublicSystemInfo(context.Background())
	if !errors.Is(err, domain.ErrServerOffline) {
		t.Fatalf("err = %v, want ErrServerOffline from open breaker", err)
	}
	if hits.Load() != before {
		t.Errorf("open breaker still reached the server")
	}
}

func TestAuthFailuresDoNotTripBreaker(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	for i := 0; i < 10; i++ {
		_, err := c.GetUserViews(context.Background())
		if !errors.Is(err, domain.ErrAuthFailed) {
			t.Fatalf("call %d: err = %v, want ErrAuthFailed", i, err)
		}
	}
}

func TestPostPlaybackInfo(t *testing.T) {
	itemID := uuid.New()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/Items/"+itemID.String()+"/PlaybackInfo" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body PlaybackInfoRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if !body.EnableTranscoding || body.EnableDirectPlay || body.MaxStreamingBitrate != 2_000_000 {
			t.Errorf("unexpected body %+v", body)
		}
		if body.UserID != testUserID.String() || len(body.DeviceProfile.TranscodingProfiles) != 1 {
			t.Errorf("profile or user not sent: %+v", body)
		}
		json.NewEncoder(w).Encode(PlaybackInfoResponse{
			PlaySessionID: "session",
			MediaSources: []MediaSource{{
				ID:               "src",
				TranscodingURL:   "/videos/x/master.m3u8?x=1",
				TranscodeReasons: []string{"ContainerBitrateExceedsLimit"},
			}},
		})
	})

	info, err := c.PostPlaybackInfo(context.Background(), itemID, domain.PlaybackInfoRequest{
		MaxStreamingBitrate: 2_000_000,
		EnableTranscoding:   true,
		DeviceProfile: domain.DeviceProfile{
			TranscodingProfiles: []domain.TranscodingProfile{{Container: "ts"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if info.PlaySessionID != "session" || len(info.Sources) != 1 {
		t.Fatalf("info = %+v", info)
	}
	src := info.Sources[0]
	if src.TranscodingURL != "/videos/x/master.m3u8?x=1" || src.TranscodeReasons[0] != "ContainerBitrateExceedsLimit" {
		t.Errorf("transcode metadata altered: %+v", src)
	}
}

func TestMasterPlaylistURL(t *testing.T) {
	c := NewClient("http://media.local:8096/", "tok", testUserID, testDevice, nil)
	itemID := uuid.New()

	raw, err := c.MasterPlaylistURL(domain.StreamParams{
		ItemID:           itemID,
		DeviceID:         "device-1",
		MediaSourceID:    "src",
		PlaySessionID:    "ps",
		VideoCodec:       "h264",
		AudioCodec:       "aac",
		CopyTimestamps:   true,
		SubtitleMethod:   domain.SubtitleExternal,
		Context:          domain.ContextStreaming,
		SegmentContainer: "ts",
	})
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/Videos/"+itemID.String()+"/master.m3u8" {
		t.Errorf("path = %s", u.Path)
	}
	q := u.Query()
	want := map[string]string{
		"static":                         "false",
		"audioCodec":                     "aac",
		"segmentContainer":               "ts",
		"subtitleMethod":                 "External",
		"copyTimestamps":                 "true",
		"context":                        "Streaming",
		"enableAdaptiveBitrateStreaming": "false",
		"api_key":                        "tok",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	for _, k := range []string{"videoBitRate", "transcodeReasons", "startTimeTicks"} {
		if q.Has(k) {
			t.Errorf("zero value %s must be omitted", k)
		}
	}

	if _, err := c.MasterPlaylistURL(domain.StreamParams{}); err == nil {
		t.Error("expected error without an item id")
	}
}

func TestGetSegmentsAndTrickplay(t *testing.T) {
	itemID := uuid.New()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Episode/" + itemID.String() + "/IntroSkipperSegments":
			io.WriteString(w, `{"Introduction":{"IntroStart":5,"IntroEnd":60,"ShowSkipPromptAt":3,"HideSkipPromptAt":10}}`)
		case "/Videos/" + itemID.String() + "/Trickplay/320/4.jpg":
			w.Write([]byte{0xff, 0xd8})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	segs, err := c.GetSegments(context.Background(), itemID)
	if err != nil {
		t.Fatal(err)
	}
	intro, ok := segs["Introduction"]
	if !ok || intro.StartTime != 5 || intro.EndTime != 60 || intro.ShowAt != 3 {
		t.Errorf("segments = %+v", segs)
	}

	tile, err := c.GetTrickplayTile(context.Background(), itemID, 320, 4)
	if err != nil || len(tile) != 2 {
		t.Errorf("tile=%v err=%v", tile, err)
	}
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["Username"] != "alice" || body["Pw"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(AuthResponse{
			AccessToken: "token",
			ServerID:    "srv",
			User:        User{ID: strings.ReplaceAll(userID.String(), "-", ""), Name: "alice"},
		})
	}))
	defer srv.Close()

	flow := NewAuthFlow(testDevice, nil)
	res, err := flow.Authenticate(context.Background(), srv.URL, "alice", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "token" || res.UserID != userID || res.ServerID != "srv" {
		t.Errorf("result = %+v", res)
	}

	if _, err := flow.Authenticate(context.Background(), srv.URL, "alice", "wrong"); !errors.Is(err, domain.ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
}

func TestRunReadsCredentialsFromReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AuthResponse{AccessToken: "t", User: User{ID: uuid.NewString(), Name: "bob"}})
	}))
	defer srv.Close()

	flow := NewAuthFlow(testDevice, nil)
	flow.in = strings.NewReader("bob\nsecret\n")
	flow.out = io.Discard

	res, err := flow.Run(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if res.Username != "bob" {
		t.Errorf("Username = %q", res.Username)
	}
}
