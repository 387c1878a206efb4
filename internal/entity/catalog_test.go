package entity_test

import (
	"slices"
	"testing"

	"vidfetch/internal/entity"
)

func TestNewFormatCatalog(t *testing.T) {
	tests := []struct {
		name       string
		formats    []entity.Format
		wantLabels []string
		wantIDs    map[string]string
	}{
		{
			name:       "empty",
			formats:    nil,
			wantLabels: nil,
			wantIDs:    map[string]string{},
		},
		{
			name: "audio only and heightless formats are skipped",
			formats: []entity.Format{
				{FormatID: "140", Ext: "m4a", VCodec: "none", ACodec: "mp4a"},
				{FormatID: "sb0", Ext: "mhtml", VCodec: "images"},
				{FormatID: "18", Ext: "mp4", VCodec: "avc1", Height: 360},
			},
			wantLabels: []string{"360p - mp4"},
			wantIDs:    map[string]string{"360p - mp4": "18"},
		},
		{
			name: "sorted by height descending, first duplicate wins",
			formats: []entity.Format{
				{FormatID: "134", Ext: "mp4", VCodec: "avc1", Height: 360},
				{FormatID: "137", Ext: "mp4", VCodec: "avc1", Height: 1080},
				{FormatID: "248", Ext: "webm", VCodec: "vp9", Height: 1080},
				{FormatID: "399", Ext: "mp4", VCodec: "av01", Height: 1080},
				{FormatID: "136", Ext: "mp4", VCodec: "avc1", Height: 720},
			},
			wantLabels: []string{"1080p - mp4", "1080p - webm", "720p - mp4", "360p - mp4"},
			wantIDs: map[string]string{
				"1080p - mp4":  "137",
				"1080p - webm": "248",
				"720p - mp4":   "136",
				"360p - mp4":   "134",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := entity.NewFormatCatalog(tt.formats)

			if got := catalog.Labels(); !slices.Equal(got, tt.wantLabels) {
				t.Errorf("Labels() = %v, want %v", got, tt.wantLabels)
			}

			if catalog.Len() != len(tt.wantIDs) {
				t.Errorf("Len() = %d, want %d", catalog.Len(), len(tt.wantIDs))
			}

			for label, wantID := range tt.wantIDs {
				id, ok := catalog.Lookup(label)
				if !ok || id != wantID {
					t.Errorf("Lookup(%q) = %q, %v; want %q", label, id, ok, wantID)
				}
			}
		})
	}
}

func TestTaskNameValid(t *testing.T) {
	for _, task := range entity.Tasks {
		if !task.Valid() {
			t.Errorf("%q should be valid", task)
		}
	}

	if entity.TaskName("playlist").Valid() {
		t.Error("unexpected valid task name")
	}
}
