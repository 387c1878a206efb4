// Package request holds the decoded bodies of the control API.
package request

import (
	"vidfetch/internal/errs"
	"vidfetch/pkg/urls"
)

// Check asks for a metadata lookup.
type Check struct {
	URL string `json:"url"`
}

// Normalize trims the URL and adds a missing scheme.
func (c *Check) Normalize() {
	c.URL = urls.Normalize(c.URL)
}

// Validate reports errs.ErrInvalidURL when the URL is not an absolute http(s) URL.
func (c *Check) Validate() error {
	if !urls.IsURLValid(c.URL) {
		return errs.ErrInvalidURL
	}

	return nil
}

// Download starts one of the download tasks.
type Download struct {
	URL string `json:"url"`
	// Quality is a format catalog label, e.g. "1080p - mp4". Only used by video;
	// empty means best available.
	Quality string `json:"quality"`
}

func (d *Download) Normalize() {
	d.URL = urls.Normalize(d.URL)
}

func (d *Download) Validate() error {
	if !urls.IsURLValid(d.URL) {
		return errs.ErrInvalidURL
	}

	return nil
}
