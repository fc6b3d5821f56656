package domain

// DefaultSearchLimit is used when a caller does not supply a limit.
const DefaultSearchLimit = 3

// SearchResult is one nearest-neighbour match. Text is the full parsed text of
// the document the chunk came from. Distance is the cosine distance
// between the query and chunk embeddings; lower is closer.
type SearchResult struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	ProjectID  string         `json:"project_id"`
	TenantID   string         `json:"tenant_id"`
	Title      string         `json:"title"`
	URL        string         `json:"url,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	Text       string         `json:"text"`
	Chunk      string         `json:"chunk"`
	ChunkIndex int            `json:"chunk_index"`
	Distance   float64        `json:"distance"`
}
