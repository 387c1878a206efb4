package engine_test

import (
	_ "embed"
	"errors"
	"testing"

	"vidfetch/internal/engine"
	"vidfetch/internal/errs"
)

//go:embed testdata/dump_json_single.json
var dumpJSONSingle string

//go:embed testdata/dump_json_noise.json
var dumpJSONNoise string

func TestParseInfoJSON(t *testing.T) {
	tests := []struct {
		name          string
		stdout        string
		wantErr       error
		wantID        string
		wantTitle     string
		wantThumbnail string
		wantFormats   int
	}{
		{
			name:          "single video",
			stdout:        dumpJSONSingle,
			wantID:        "dQw4w9WgXcQ",
			wantTitle:     "Never Gonna: Give/You Up",
			wantThumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
			wantFormats:   5,
		},
		{
			name:        "warnings then playlist takes first entry",
			stdout:      dumpJSONNoise,
			wantID:      "one",
			wantTitle:   "First",
			wantFormats: 1,
		},
		{
			name:    "no json",
			stdout:  "ERROR: [generic] Unsupported URL\n",
			wantErr: errs.ErrNoMetadata,
		},
		{
			name:    "empty",
			stdout:  "",
			wantErr: errs.ErrNoMetadata,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.ParseInfoJSON(tc.stdout)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ParseInfoJSON() error = %v, want %v", err, tc.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseInfoJSON() failed: %v", err)
			}

			if got.ID != tc.wantID {
				t.Errorf("got ID = %q, want %q", got.ID, tc.wantID)
			}

			if got.Title != tc.wantTitle {
				t.Errorf("got Title = %q, want %q", got.Title, tc.wantTitle)
			}

			if got.Thumbnail != tc.wantThumbnail {
				t.Errorf("got Thumbnail = %q, want %q", got.Thumbnail, tc.wantThumbnail)
			}

			if len(got.Formats) != tc.wantFormats {
				t.Errorf("got %d formats, want %d", len(got.Formats), tc.wantFormats)
			}
		})
	}
}

func TestParseInfoJSON_Formats(t *testing.T) {
	info, err := engine.ParseInfoJSON(dumpJSONSingle)
	if err != nil {
		t.Fatalf("ParseInfoJSON() failed: %v", err)
	}

	byID := make(map[string]int, len(info.Formats))
	for i, f := range info.Formats {
		byID[f.FormatID] = i
	}

	f18 := info.Formats[byID["18"]]
	if f18.Height != 360 || f18.Ext != "mp4" || f18.Filesize != 11810234 {
		t.Errorf("format 18 = %+v", f18)
	}

	if f140 := info.Formats[byID["140"]]; f140.HasVideo() {
		t.Errorf("audio format reported as video: %+v", f140)
	}

	if sb := info.Formats[byID["sb0"]]; sb.HasVideo() {
		t.Errorf("storyboard reported as video: %+v", sb)
	}
}

func TestParseFilepath(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{
			name:   "single path",
			stdout: "/home/u/Downloads/video/Clip (1).mp4\n",
			want:   "/home/u/Downloads/video/Clip (1).mp4",
		},
		{
			name:   "json and log lines are ignored",
			stdout: "{\"id\": \"x\"}\n[download] Destination: tmp.f137.mp4\n/dl/audio/Song.mp3\n",
			want:   "/dl/audio/Song.mp3",
		},
		{
			name:   "nothing printed",
			stdout: "",
			want:   "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := engine.ParseFilepath(tc.stdout); got != tc.want {
				t.Errorf("ParseFilepath() = %q, want %q", got, tc.want)
			}
		})
	}
}
