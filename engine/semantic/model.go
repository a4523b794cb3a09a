package semantic

import (
	"github.com/google/uuid"

	"github.com/SiteSageAI/sitesage-mvp/engine/dedupe"
	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
)

// SearchResult represents a single vector search hit.
type SearchResult struct {
	ID         string            `json:"id"`
	Score      float32           `json:"score"`
	Content    string            `json:"content"`
	SourceType string            `json:"source_type"`
	Meta       map[string]string `json:"meta"`
}

// VectorRecord represents a single vector to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // content plus the chunk's metadata
}

// PointID derives the deterministic point ID for chunk content. Reindexing
// the same snapshot twice produces the same IDs, so repeats overwrite
// instead of accumulating.
func PointID(content string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("sitesage:chunk:"+dedupe.Digest(content))).String()
}

// Payload renders a chunk as a point payload: its content plus every
// metadata key, sanitized at upsert time.
func Payload(c domain.Chunk) map[string]any {
	p := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		p[k] = v
	}
	p["content"] = c.Content
	return p
}
