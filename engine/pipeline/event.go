package pipeline

import (
	"time"

	"github.com/SiteSageAI/sitesage-mvp/engine/ingest"
)

// SubjectSnapshotReady is the NATS subject announcing a finished snapshot.
const SubjectSnapshotReady = "sitesage.snapshot.ready"

// SnapshotReady tells downstream indexers that a snapshot is complete on
// disk. The path is local to the host that ran the pipeline; deployments
// share the processed directory between pipeline and indexer.
type SnapshotReady struct {
	Path    string        `json:"path"`
	Chunks  int           `json:"chunks"`
	Stats   *ingest.Stats `json:"stats,omitempty"`
	BuiltAt time.Time     `json:"built_at"`
}
