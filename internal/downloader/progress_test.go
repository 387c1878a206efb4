package downloader_test

import (
	"testing"

	"vidfetch/internal/downloader"
	"vidfetch/internal/engine"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		in           engine.Progress
		wantFraction float64
		wantStatus   string
		wantOK       bool
	}{
		{
			name:         "finished uses label",
			in:           engine.Progress{Status: engine.StatusFinished},
			wantFraction: 1,
			wantStatus:   "处理中...",
			wantOK:       true,
		},
		{
			name: "bytes with known total",
			in: engine.Progress{
				Status: engine.StatusDownloading, DownloadedBytes: 512, TotalBytes: 1024, Speed: 2048, ETASeconds: 5, HasETA: true,
			},
			wantFraction: 0.5,
			wantStatus:   "[download] 50.0% of 1.0 KiB at 2.0 KiB/s ETA 00:05",
			wantOK:       true,
		},
		{
			name: "estimate when total is missing",
			in: engine.Progress{
				Status: engine.StatusDownloading, DownloadedBytes: 256, TotalBytesEstimate: 1024,
			},
			wantFraction: 0.25,
			wantStatus:   "[download] 25.0% of 1.0 KiB at Unknown speed ETA Unknown",
			wantOK:       true,
		},
		{
			name: "engine strings win and lose their colors",
			in: engine.Progress{
				Status:        engine.StatusDownloading,
				PercentStr:    "\x1b[0;94m 42.5%\x1b[0m",
				TotalBytesStr: "10.00MiB",
				SpeedStr:      "\x1b[0;32m1.20MiB/s\x1b[0m",
				ETAStr:        "\x1b[0;33m00:07\x1b[0m",
			},
			wantFraction: 0.425,
			wantStatus:   "[download] 42.5% of 10.00MiB at 1.20MiB/s ETA 00:07",
			wantOK:       true,
		},
		{
			name:         "nothing known",
			in:           engine.Progress{Status: engine.StatusDownloading},
			wantFraction: 0,
			wantStatus:   "[download] 0.0% of Unknown size at Unknown speed ETA Unknown",
			wantOK:       true,
		},
		{
			name:         "overshoot is clamped",
			in:           engine.Progress{Status: engine.StatusDownloading, DownloadedBytes: 2048, TotalBytes: 1024},
			wantFraction: 1,
			wantStatus:   "[download] 100.0% of 1.0 KiB at Unknown speed ETA Unknown",
			wantOK:       true,
		},
		{
			name:   "error status is dropped",
			in:     engine.Progress{Status: engine.StatusError},
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fraction, status, ok := downloader.Normalize(tc.in, "处理中...")
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}

			if !ok {
				return
			}

			if fraction != tc.wantFraction {
				t.Errorf("fraction = %v, want %v", fraction, tc.wantFraction)
			}

			if status != tc.wantStatus {
				t.Errorf("status = %q, want %q", status, tc.wantStatus)
			}
		})
	}
}

func TestNormalize_FractionAlwaysInRange(t *testing.T) {
	t.Parallel()

	sizes := []int64{-10, 0, 1, 999, 1000, 1001, 1 << 40}
	percents := []string{"", "0%", "100%", "250.0%", "-5%", "abc", "  7.5%"}

	for _, downloaded := range sizes {
		for _, total := range sizes {
			for _, percent := range percents {
				p := engine.Progress{
					Status:             engine.StatusDownloading,
					DownloadedBytes:    downloaded,
					TotalBytesEstimate: total,
					PercentStr:         percent,
				}

				fraction, _, ok := downloader.Normalize(p, "")
				if !ok || fraction < 0 || fraction > 1 {
					t.Fatalf("Normalize(%+v) = %v, %v", p, fraction, ok)
				}
			}
		}
	}
}

func TestETAString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   engine.Progress
		want string
	}{
		{engine.Progress{ETASeconds: 75, HasETA: true}, "01:15"},
		{engine.Progress{ETASeconds: 3725, HasETA: true}, "01:02:05"},
		{engine.Progress{HasETA: true}, "00:00"},
		{engine.Progress{ETAStr: "12:34"}, "12:34"},
		{engine.Progress{ETAStr: "N/A"}, "Unknown"},
		{engine.Progress{}, "Unknown"},
		{engine.Progress{ETASeconds: -3, HasETA: true}, "Unknown"},
	}

	for _, tc := range tests {
		if got := downloader.ETAString(tc.in); got != tc.want {
			t.Errorf("ETAString(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripANSI(t *testing.T) {
	t.Parallel()

	if got := downloader.StripANSI("\x1b[0;94m 12.3%\x1b[0m"); got != " 12.3%" {
		t.Fatalf("StripANSI() = %q", got)
	}
}
