package entity

import (
	"cmp"
	"slices"
)

// FormatCatalog maps "<height>p - <ext>" labels to format ids.
// It is rebuilt on every metadata lookup and never persisted.
type FormatCatalog struct {
	labels []string
	ids    map[string]string
	height map[string]int
}

// NewFormatCatalog builds a catalog from formats that carry video.
// The first format seen for a label wins; labels are ordered by height, tallest first.
func NewFormatCatalog(formats []Format) FormatCatalog {
	catalog := FormatCatalog{
		ids:    make(map[string]string),
		height: make(map[string]int),
	}

	for _, f := range formats {
		if !f.HasVideo() {
			continue
		}

		label := f.Label()
		if _, ok := catalog.ids[label]; ok {
			continue
		}

		catalog.ids[label] = f.FormatID
		catalog.height[label] = f.Height
		catalog.labels = append(catalog.labels, label)
	}

	slices.SortStableFunc(catalog.labels, func(a, b string) int {
		return cmp.Compare(catalog.height[b], catalog.height[a])
	})

	return catalog
}

// Labels returns the ordered labels.
func (c FormatCatalog) Labels() []string {
	return slices.Clone(c.labels)
}

// Lookup returns the format id for a label.
func (c FormatCatalog) Lookup(label string) (string, bool) {
	id, ok := c.ids[label]

	return id, ok
}

// Len returns the number of labels.
func (c FormatCatalog) Len() int {
	return len(c.labels)
}
