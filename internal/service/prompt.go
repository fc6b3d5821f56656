package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

const ragPromptTemplate = `Question: %s

Please use the following context from the documents to provide an accurate response:

%s

Answer:`

// BuildContext joins search results into one block, each tagged with its
// metadata.
func BuildContext(results []*domain.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			meta = []byte("{}")
		}
		blocks = append(blocks, fmt.Sprintf("Document %s:\n%s", meta, r.Chunk))
	}
	return strings.Join(blocks, "\n\n")
}

// BuildPrompt interpolates the caller's original query and the context block
// into the answer template.
func BuildPrompt(query, contextBlock string) string {
	return fmt.Sprintf(ragPromptTemplate, query, contextBlock)
}
