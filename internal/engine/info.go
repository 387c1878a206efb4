package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"vidfetch/internal/entity"
	"vidfetch/internal/errs"
)

var (
	maxJSONSize = 16 * 1024 * 1024                                       // 16 MiB scanner buffer, format lists are large
	bufSize     = 4096                                                   // 4 KiB initial buffer
	reFilepath  = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`) // file path
)

// infoJSON is the subset of the yt-dlp info dict the application reads.
type infoJSON struct {
	Type       string       `json:"_type"`
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Thumbnail  string       `json:"thumbnail"`
	Ext        string       `json:"ext"`
	Extractor  string       `json:"extractor"`
	WebpageURL string       `json:"webpage_url"`
	Duration   float64      `json:"duration"`
	Formats    []formatJSON `json:"formats"`
	Entries    []infoJSON   `json:"entries"`
}

type formatJSON struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Height         float64 `json:"height"`
	Width          float64 `json:"width"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
	TBR            float64 `json:"tbr"`
}

func (i infoJSON) toEntity() *entity.VideoInfo {
	info := &entity.VideoInfo{
		ID:         i.ID,
		Title:      i.Title,
		Thumbnail:  i.Thumbnail,
		Ext:        i.Ext,
		Extractor:  i.Extractor,
		WebpageURL: i.WebpageURL,
		Duration:   i.Duration,
		Formats:    make([]entity.Format, 0, len(i.Formats)),
	}

	for _, f := range i.Formats {
		size := f.Filesize
		if size == 0 {
			size = f.FilesizeApprox
		}

		info.Formats = append(info.Formats, entity.Format{
			FormatID: f.FormatID,
			Ext:      f.Ext,
			Height:   int(f.Height),
			Width:    int(f.Width),
			VCodec:   f.VCodec,
			ACodec:   f.ACodec,
			Filesize: int64(size),
			TBR:      f.TBR,
		})
	}

	return info
}

// ParseInfoJSON reads the first info dict from --dump-json output.
// Stray non-JSON lines are skipped. A playlist result yields its first entry.
func ParseInfoJSON(stdout string) (*entity.VideoInfo, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var raw infoJSON
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}

		if raw.Type == "playlist" && len(raw.Entries) > 0 {
			raw = raw.Entries[0]
		}

		if raw.ID == "" && raw.Title == "" {
			continue
		}

		return raw.toEntity(), nil
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan stdout: %w", err)
	}

	return nil, errs.ErrNoMetadata
}

// ParseFilepath returns the last line of stdout that looks like a file path,
// as printed by --print after_move:filepath.
func ParseFilepath(stdout string) string {
	var path string

	for line := range strings.Lines(stdout) {
		line = strings.TrimSpace(line)
		if reFilepath.MatchString(line) {
			path = line
		}
	}

	return path
}
