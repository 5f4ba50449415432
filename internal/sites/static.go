package sites

import (
	"context"

	"github.com/auditkit/seopipeline/internal/audit"
)

// StaticSource serves a fixed site list from configuration. Useful for
// one-off runs and environments without the audit database.
type StaticSource struct {
	sites []audit.Site
}

// NewStaticSource copies the given list into a source.
func NewStaticSource(list []audit.Site) *StaticSource {
	out := make([]audit.Site, len(list))
	copy(out, list)
	for i := range out {
		if out[i].Label == "" {
			out[i].Label = out[i].Domain
		}
	}
	return &StaticSource{sites: out}
}

// ActiveSites returns the configured list in its original order.
func (s *StaticSource) ActiveSites(_ context.Context) ([]audit.Site, error) {
	out := make([]audit.Site, len(s.sites))
	copy(out, s.sites)
	return out, nil
}
