package downloader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"vidfetch/internal/consts"
	"vidfetch/internal/engine"
	"vidfetch/pkg/calc"

	"github.com/dustin/go-humanize"
)

var (
	rePercent = regexp.MustCompile(`(\d+\.?\d*)`)
	reClock   = regexp.MustCompile(`^\d+:\d+`)
	reANSI    = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)
)

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	return reANSI.ReplaceAllString(s, "")
}

// Normalize turns an engine progress payload into a fraction in [0, 1] and a
// status line. finishedLabel is reported with 1.0 once the engine says finished.
// ok is false for payloads that should not be forwarded.
func Normalize(p engine.Progress, finishedLabel string) (fraction float64, status string, ok bool) {
	switch p.Status {
	case engine.StatusDownloading:
	case engine.StatusFinished:
		return 1, finishedLabel, true
	default:
		return 0, "", false
	}

	percent := strings.TrimSpace(StripANSI(p.PercentStr))

	total := p.TotalBytes
	if total <= 0 {
		total = p.TotalBytesEstimate
	}

	switch {
	case p.DownloadedBytes > 0 && total > 0:
		fraction = calc.Fraction(p.DownloadedBytes, total)
	case percent != "":
		fraction = parsePercent(percent)
	}

	if percent == "" {
		percent = fmt.Sprintf("%.1f%%", fraction*100)
	}

	status = fmt.Sprintf("[download] %s of %s at %s ETA %s", percent, sizeString(p, total), speedString(p), ETAString(p))

	return fraction, status, true
}

func parsePercent(s string) float64 {
	match := rePercent.FindString(s)
	if match == "" {
		return 0
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}

	return calc.Clamp01(v / 100)
}

func sizeString(p engine.Progress, total int64) string {
	if s := strings.TrimSpace(StripANSI(p.TotalBytesStr)); s != "" {
		return s
	}

	if total > 0 {
		return humanize.IBytes(uint64(total))
	}

	return consts.UnknownSize
}

func speedString(p engine.Progress) string {
	if s := strings.TrimSpace(StripANSI(p.SpeedStr)); s != "" {
		return s
	}

	if p.Speed > 0 {
		return humanize.IBytes(uint64(p.Speed)) + "/s"
	}

	return consts.UnknownSpeed
}

// ETAString renders the remaining time as MM:SS or HH:MM:SS. Without seconds it
// falls back to the engine's string when that looks like a clock, else Unknown.
func ETAString(p engine.Progress) string {
	if p.HasETA && p.ETASeconds >= 0 {
		return calc.Clock(time.Duration(p.ETASeconds) * time.Second)
	}

	eta := strings.TrimSpace(StripANSI(p.ETAStr))
	if reClock.MatchString(eta) {
		return eta
	}

	return consts.UnknownETA
}
