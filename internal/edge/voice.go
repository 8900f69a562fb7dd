package edge

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Voice describes one entry of the Edge read-aloud voice catalog.
type Voice struct {
	Name           string `json:"Name"`
	ShortName      string `json:"ShortName"`
	Gender         string `json:"Gender"`
	Locale         string `json:"Locale"`
	SuggestedCodec string `json:"SuggestedCodec"`
	FriendlyName   string `json:"FriendlyName"`
	Status         string `json:"Status"`
}

// DisplayLabel renders the voice as shown to the operator,
// e.g. "en-US-AriaNeural - en-US (Female)".
func (v Voice) DisplayLabel() string {
	return fmt.Sprintf("%s - %s (%s)", v.ShortName, v.Locale, v.Gender)
}

// ShortNameFromLabel strips a display label back down to the engine short
// name. Bare short names pass through unchanged.
func ShortNameFromLabel(label string) string {
	name, _, _ := strings.Cut(label, " - ")
	return strings.TrimSpace(name)
}

// Catalog maps display labels to engine short names. Labels are unique by
// construction (short names are unique within the engine catalog).
type Catalog struct {
	labels  []string
	byLabel map[string]string
}

// NewCatalog builds a Catalog from engine voices. Labels are kept sorted so
// listings are stable across runs.
func NewCatalog(voices []Voice) *Catalog {
	c := &Catalog{byLabel: make(map[string]string, len(voices))}
	for _, v := range voices {
		label := v.DisplayLabel()
		if _, ok := c.byLabel[label]; ok {
			continue
		}
		c.byLabel[label] = v.ShortName
		c.labels = append(c.labels, label)
	}
	sort.Strings(c.labels)
	return c
}

// LoadCatalog fetches the voice list once and builds the catalog. A failure
// here is fatal for interactive use, not a per-request error.
func LoadCatalog(ctx context.Context, lister VoiceLister) (*Catalog, error) {
	voices, err := lister.ListVoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("edge: voice catalog unavailable: %w", err)
	}
	return NewCatalog(voices), nil
}

// Labels returns all display labels in sorted order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// ShortName resolves a display label to its engine short name.
func (c *Catalog) ShortName(label string) (string, bool) {
	name, ok := c.byLabel[label]
	return name, ok
}

// Len reports the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.labels)
}
