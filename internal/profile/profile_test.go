package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/remotetest"
)

func TestBuildDeviceProfileCapsTranscodeBitrate(t *testing.T) {
	n := NewNegotiator(remotetest.New("http://media.local"), "", nil)
	userID := uuid.New()

	for _, maxBitrate := range []int{1_000_000, 8_000_000, 120_000_000} {
		p := n.BuildDeviceProfile(userID, maxBitrate, "ts", domain.ContextStreaming)

		if p.MaxStaticBitrate != maxBitrate || p.MaxStreamingBitrate != maxBitrate {
			t.Errorf("max bitrates = %d/%d, want %d", p.MaxStaticBitrate, p.MaxStreamingBitrate, maxBitrate)
		}
		if len(p.TranscodingProfiles) != 1 {
			t.Fatalf("got %d transcoding profiles, want 1", len(p.TranscodingProfiles))
		}
		tp := p.TranscodingProfiles[0]
		if tp.Container != "ts" || tp.Context != domain.ContextStreaming || tp.VideoCodec != DefaultTranscodeCodec || tp.AudioCodec != "aac" {
			t.Errorf("unexpected transcoding profile %+v", tp)
		}
		if len(tp.Conditions) != 1 {
			t.Fatalf("got %d conditions, want 1", len(tp.Conditions))
		}
		cond := tp.Conditions[0]
		if cond.Condition != "LessThanEqual" || cond.Property != "VideoBitrate" || cond.Value != "8000000" || !cond.IsRequired {
			t.Errorf("unexpected condition %+v", cond)
		}
	}
}

func TestBuildDeviceProfileDirectPlayAndSubtitles(t *testing.T) {
	n := NewNegotiator(remotetest.New("http://media.local"), "hevc", nil)
	p := n.BuildDeviceProfile(uuid.New(), 2_000_000, "mp4", domain.ContextStatic)

	if len(p.DirectPlayProfiles) != 2 || p.DirectPlayProfiles[0].Type != domain.ProfileVideo || p.DirectPlayProfiles[1].Type != domain.ProfileAudio {
		t.Errorf("direct play profiles = %+v", p.DirectPlayProfiles)
	}
	if p.TranscodingProfiles[0].VideoCodec != "hevc" {
		t.Errorf("configured codec not used: %s", p.TranscodingProfiles[0].VideoCodec)
	}

	want := []string{"srt", "ass", "sub", "vtt", "ssa", "pgs", "dvb_teletext", "dvd_subtitle"}
	if len(p.SubtitleProfiles) != len(want) {
		t.Fatalf("got %d subtitle profiles, want %d", len(p.SubtitleProfiles), len(want))
	}
	for i, format := range want {
		sp := p.SubtitleProfiles[i]
		if sp.Format != format || sp.Method != domain.SubtitleExternal {
			t.Errorf("subtitle %d = %+v, want %s external", i, sp, format)
		}
	}
}

func TestDirectPlayAllProfile(t *testing.T) {
	p := DirectPlayAllProfile()
	if p.MaxStreamingBitrate != DirectPlayAllBitrate || len(p.TranscodingProfiles) != 0 {
		t.Errorf("unexpected profile %+v", p)
	}
	if len(p.SubtitleProfiles) != 2 {
		t.Errorf("subtitle profiles = %+v", p.SubtitleProfiles)
	}
}

func TestGetPostedPlaybackInfoForcesTranscoding(t *testing.T) {
	remote := remotetest.New("http://media.local")
	itemID, userID := uuid.New(), uuid.New()
	want := domain.PlaybackInfo{
		PlaySessionID: "ps",
		Sources: []domain.Source{{
			ID:               "s1",
			TranscodingURL:   "/Videos/x/master.m3u8",
			TranscodeReasons: []string{"VideoCodecNotSupported"},
		}},
	}
	remote.Playback[itemID] = want

	n := NewNegotiator(remote, "", nil)
	profile := n.BuildDeviceProfile(userID, 3_000_000, "ts", domain.ContextStreaming)

	got, err := n.GetPostedPlaybackInfo(context.Background(), userID, itemID, true, profile, 3_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if got.PlaySessionID != "ps" || got.Sources[0].TranscodingURL != want.Sources[0].TranscodingURL || got.Sources[0].TranscodeReasons[0] != "VideoCodecNotSupported" {
		t.Errorf("negotiated info altered: %+v", got)
	}

	reqs := remote.PlaybackRequests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests", len(reqs))
	}
	req := reqs[0]
	if !req.EnableTranscoding || req.EnableDirectPlay || !req.EnableDirectStream {
		t.Errorf("unexpected flags %+v", req)
	}
	if req.MaxStreamingBitrate != 3_000_000 || req.UserID != userID || !req.AutoOpenLiveStream {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestGetPostedPlaybackInfoPropagatesErrors(t *testing.T) {
	remote := remotetest.New("http://media.local")
	remote.SetError("PostPlaybackInfo", domain.ErrAuthFailed)

	n := NewNegotiator(remote, "", nil)
	_, err := n.GetPostedPlaybackInfo(context.Background(), uuid.New(), uuid.New(), false, DirectPlayAllProfile(), 1)
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
}
