package repository

import (
	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"
)

// rewireInbound migrates reference edges pointing at a superseded value to
// its successor. Only edges whose source value is owned by at least one
// open draft version edge move: draft parents track the newest content of
// what they reference, while finalized parents stay pinned to the value
// that was current when they were approved. Edge metadata (type, position,
// per-edge props) travels unchanged.
//
// Idempotent: migrating twice, or with no inbound edges, is a no-op.
func rewireInbound(tx graph.Tx, oldValueID, newValueID string) error {
	if oldValueID == newValueID {
		return nil
	}
	inbound, err := tx.IncomingRefs(oldValueID)
	if err != nil {
		return err
	}
	for _, edge := range inbound {
		owners, err := tx.ValueOwners(edge.SourceValueID)
		if err != nil {
			return err
		}
		if !hasOpenDraftOwner(owners) {
			continue
		}
		if err := tx.DeleteRefEdge(edge.ID); err != nil {
			return err
		}
		migrated := edge
		migrated.TargetValueID = newValueID
		if _, err := tx.CreateRefEdge(migrated); err != nil {
			return err
		}
	}
	return nil
}

func hasOpenDraftOwner(owners []graph.VersionEdgeRecord) bool {
	for _, owner := range owners {
		if owner.Open() && owner.Status == domain.StatusDraft {
			return true
		}
	}
	return false
}
