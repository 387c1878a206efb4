package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"vidfetch/internal/consts"
	"vidfetch/internal/entity"
	"vidfetch/internal/errs"
)

const thumbnailSuffix = "_thumbnail"

// DownloadThumbnail saves the video's thumbnail as a jpg next to the videos.
func (d *Downloader) DownloadThumbnail(ctx context.Context, url string) entity.Outcome {
	info, err := d.GetVideoInfo(ctx, url)
	if err != nil {
		return d.thumbnailOutcome(ctx, entity.Outcome{Kind: entity.OutcomeFailed, Message: consts.ResultNoInfo, Err: err})
	}

	if info.Thumbnail == "" {
		return d.thumbnailOutcome(ctx, entity.Outcome{
			Kind: entity.OutcomeFailed, Message: consts.ResultNoThumbnail, Err: errs.ErrNoThumbnail,
		})
	}

	name := UniqueName(d.dirs.VideoDir(), Sanitize(info.Title, thumbnailNameRunes, "video")+thumbnailSuffix, "jpg")
	path := filepath.Join(d.dirs.VideoDir(), name+".jpg")

	if err := d.fetch(ctx, info.Thumbnail, path); err != nil {
		msg := consts.ResultErrorPrefix + err.Error()
		if errors.Is(err, errs.ErrThumbnailStatus) {
			msg = consts.ResultThumbnailFailed
		}

		return d.thumbnailOutcome(ctx, entity.Outcome{Kind: entity.OutcomeFailed, Message: msg, Err: err})
	}

	return d.thumbnailOutcome(ctx, entity.Outcome{
		Kind:    entity.OutcomeDone,
		Message: fmt.Sprintf(consts.ResultThumbnailDone, filepath.Base(path)),
		Path:    path,
	})
}

func (d *Downloader) fetch(ctx context.Context, src, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", errs.ErrThumbnailStatus, resp.Status)
	}

	f, err := os.Create(dst) //nolint:gosec
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)

		return fmt.Errorf("write %s: %w", dst, err)
	}

	return f.Close()
}

func (d *Downloader) thumbnailOutcome(ctx context.Context, out entity.Outcome) entity.Outcome {
	if out.Kind == entity.OutcomeDone {
		d.log.InfoContext(ctx, "thumbnail saved", slog.Any("outcome", out))
	} else {
		d.log.WarnContext(ctx, "thumbnail failed", slog.Any("outcome", out))
	}

	d.metrics.RecordDownload(string(entity.TaskThumbnail), string(out.Kind))

	return out
}
