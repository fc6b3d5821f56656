package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchResult represents a matching chunk.
type SearchResult struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	ProjectID  string         `json:"project_id"`
	Title      string         `json:"title"`
	URL        string         `json:"url,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	Text       string         `json:"text,omitempty"`
	Chunk      string         `json:"chunk"`
	ChunkIndex int            `json:"chunk_index"`
	Distance   float64        `json:"distance"`
}

// Answer is a generated answer with the chunks it was grounded on.
type Answer struct {
	Answer  string          `json:"answer"`
	Sources []*SearchResult `json:"sources"`
}

type searchRequest struct {
	Query        string `json:"query"`
	Limit        *int   `json:"limit,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the current project",
		Long:  "Returns the chunks closest to the query, nearest first.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.projectPath("/search")
			if err != nil {
				return err
			}

			resp, err := api.Post(path, newSearchRequest(cmd, strings.Join(args, " "), limit))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			var results []*SearchResult
			if err := resp.Decode(&results); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantsJSON(cmd) {
				return printJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "%d. %s [%s #%d] (distance %.4f)\n", i+1, r.Title, r.DocumentID, r.ChunkIndex, r.Distance)
				if r.URL != "" {
					fmt.Fprintf(out, "   %s\n", r.URL)
				}
				fmt.Fprintf(out, "   %s\n\n", truncate(strings.Join(strings.Fields(r.Chunk), " "), 200))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of results (server default when unset)")
	return cmd
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		limit        int
		systemPrompt string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question answered from the current project",
		Long:  "Retrieves the closest chunks and asks the completion model to answer from them.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.projectPath("/rag")
			if err != nil {
				return err
			}

			req := newSearchRequest(cmd, strings.Join(args, " "), limit)
			req.SystemPrompt = systemPrompt
			resp, err := api.Post(path, req)
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}
			var answer Answer
			if err := resp.Decode(&answer); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantsJSON(cmd) {
				return printJSON(out, answer)
			}
			fmt.Fprintln(out, answer.Answer)
			if len(answer.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, s := range answer.Sources {
					if s.URL != "" {
						fmt.Fprintf(out, "  - %s (%s)\n", s.Title, s.URL)
					} else {
						fmt.Fprintf(out, "  - %s\n", s.Title)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of chunks used as context (server default when unset)")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "Override the system prompt")
	return cmd
}

func newSearchRequest(cmd *cobra.Command, query string, limit int) *searchRequest {
	req := &searchRequest{Query: query}
	if cmd.Flags().Changed("limit") {
		req.Limit = &limit
	}
	return req
}
