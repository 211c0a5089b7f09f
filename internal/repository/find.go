package repository

import (
	"fmt"
	"strings"
	"time"

	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"
)

// FindOption narrows or widens FindByUID's version edge selection.
type FindOption func(*findConfig)

// AtVersion selects the most recent edge carrying the given version
// number. Retire and reactivate produce several edges with one number; the
// newest wins.
func AtVersion(v domain.Version) FindOption {
	return func(cfg *findConfig) { cfg.version = &v }
}

// WithStatus selects the most recent edge carrying the given status,
// e.g. the latest final version of a root whose head is a newer draft.
func WithStatus(s domain.VersionStatus) FindOption {
	return func(cfg *findConfig) { cfg.status = &s }
}

// AsOf selects the edge that was current at the given instant.
func AsOf(t time.Time) FindOption {
	return func(cfg *findConfig) { cfg.at = &t }
}

// IncludeDeleted lets the lookup see soft-deleted roots.
func IncludeDeleted() FindOption {
	return func(cfg *findConfig) { cfg.includeDeleted = true }
}

type findConfig struct {
	version        *domain.Version
	status         *domain.VersionStatus
	at             *time.Time
	includeDeleted bool
}

func newFindConfig(opts []FindOption) findConfig {
	var cfg findConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// selectEdge picks the version edge matching the configured filters from a
// root's history, ordered oldest first.
func (cfg findConfig) selectEdge(edges []graph.VersionEdgeRecord) (graph.VersionEdgeRecord, bool) {
	if len(edges) == 0 {
		return graph.VersionEdgeRecord{}, false
	}
	if cfg.at != nil {
		for i := len(edges) - 1; i >= 0; i-- {
			edge := edges[i]
			if edge.StartDate.After(*cfg.at) {
				continue
			}
			if edge.EndDate != nil && !cfg.at.Before(*edge.EndDate) {
				continue
			}
			if cfg.matches(edge) {
				return edge, true
			}
		}
		return graph.VersionEdgeRecord{}, false
	}
	// Without explicit filters the retired head is skipped, surfacing the
	// final version it derived from.
	skipRetired := cfg.version == nil && cfg.status == nil
	for i := len(edges) - 1; i >= 0; i-- {
		if skipRetired && edges[i].Status == domain.StatusRetired {
			continue
		}
		if cfg.matches(edges[i]) {
			return edges[i], true
		}
	}
	return graph.VersionEdgeRecord{}, false
}

func (cfg findConfig) matches(edge graph.VersionEdgeRecord) bool {
	if cfg.version != nil && edge.Version != *cfg.version {
		return false
	}
	if cfg.status != nil && edge.Status != *cfg.status {
		return false
	}
	return true
}

// describe renders the active filters for not-found errors.
func (cfg findConfig) describe() string {
	var parts []string
	if cfg.version != nil {
		parts = append(parts, "version "+cfg.version.String())
	}
	if cfg.status != nil {
		parts = append(parts, "status "+string(*cfg.status))
	}
	if cfg.at != nil {
		parts = append(parts, fmt.Sprintf("as of %s", cfg.at.Format(time.RFC3339)))
	}
	if len(parts) == 0 {
		return "latest"
	}
	return strings.Join(parts, ", ")
}
