package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Document represents a document from the API.
type Document struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	ProjectID  string         `json:"project_id"`
	Name       string         `json:"name"`
	SourceURL  string         `json:"source_url,omitempty"`
	Status     string         `json:"status"`
	SizeBytes  int            `json:"size_bytes"`
	Attempts   int            `json:"attempts"`
	LastError  string         `json:"last_error,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	UploadedBy string         `json:"uploaded_by"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

// DocumentDetail is a document with its content and parsed text.
type DocumentDetail struct {
	Document
	Content    []byte  `json:"content,omitempty"`
	ParsedText *string `json:"parsed_text,omitempty"`
}

// DocumentList is one page of documents.
type DocumentList struct {
	Items      []Document `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var (
		sourceURL string
		meta      []string
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents to the current project",
		Long: `Uploads one or more files to the current project. Each document is queued
for parsing and becomes searchable once its status is READY.

Metadata is given as key=value pairs and stored with every uploaded document.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMetadata(meta)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.projectPath("/documents")
			if err != nil {
				return err
			}

			fields := map[string]string{}
			if sourceURL != "" {
				fields["source_url"] = sourceURL
			}
			if len(metadata) > 0 {
				raw, err := json.Marshal(metadata)
				if err != nil {
					return err
				}
				fields["metadata"] = string(raw)
			}

			out := cmd.OutOrStdout()
			var uploaded []Document
			for _, file := range args {
				var progress ProgressFunc
				if !quiet && !wantsJSON(cmd) {
					progress = printProgress(cmd.ErrOrStderr(), file)
				}
				resp, err := api.PostFile(path, Upload{FilePath: file, Fields: fields}, progress)
				if err != nil {
					return fmt.Errorf("failed to upload %s: %w", file, err)
				}
				var doc Document
				if err := resp.Decode(&doc); err != nil {
					return err
				}
				uploaded = append(uploaded, doc)
				if !wantsJSON(cmd) {
					fmt.Fprintf(out, "%s  %s  %s\n", doc.ID, doc.Status, doc.Name)
				}
			}

			if wantsJSON(cmd) {
				return printJSON(out, uploaded)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "source-url", "", "Original location of the document")
	cmd.Flags().StringArrayVarP(&meta, "meta", "m", nil, "Metadata as key=value (repeatable)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print upload progress")

	return cmd
}

func parseMetadata(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q (expected key=value)", pair)
		}
		out[k] = v
	}
	return out, nil
}

func printProgress(w io.Writer, name string) ProgressFunc {
	last := -1
	return func(current, total int64) {
		if total <= 0 {
			return
		}
		pct := int(current * 100 / total)
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r%s: %3d%%", name, pct)
		if current >= total {
			fmt.Fprintln(w)
		}
	}
}

// DocumentsCmd creates the documents command.
func DocumentsCmd() *cobra.Command {
	var (
		limit  int
		cursor string
		all    bool
	)

	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs", "ls"},
		Short:   "List recent documents",
		Long:    "Lists the tenant's documents, newest first. Results are limited to the current project unless --all is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.tenantPath("/documents")
			if err != nil {
				return err
			}

			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if cursor != "" {
				q.Set("cursor", cursor)
			}
			if !all && api.projectID != "" {
				q.Set("project_id", api.projectID)
			}

			resp, err := api.Get(path + "?" + q.Encode())
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}
			var page DocumentList
			if err := resp.Decode(&page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantsJSON(cmd) {
				return printJSON(out, page)
			}
			if len(page.Items) == 0 {
				fmt.Fprintln(out, "No documents found.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-16s  %s\n", "ID", "STATUS", "NAME")
			for _, d := range page.Items {
				fmt.Fprintf(out, "%-36s  %-16s  %s\n", d.ID, d.Status, truncate(d.Name, 60))
			}
			if page.HasMore {
				fmt.Fprintf(out, "\nMore results available. Use --cursor %s\n", page.NextCursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of documents")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().BoolVar(&all, "all", false, "List documents from every project")

	return cmd
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	var (
		showText   bool
		outputFile string
	)

	cmd := &cobra.Command{
		Use:     "get <document_id>",
		Short:   "Show a document",
		Long:    "Shows a document's status and metadata. With --text the parsed text is printed; with --save the original bytes are written to a file.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.tenantPath("/documents/" + url.PathEscape(args[0]))
			if err != nil {
				return err
			}

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("failed to get document: %w", err)
			}
			var doc DocumentDetail
			if err := resp.Decode(&doc); err != nil {
				return err
			}

			if outputFile != "" {
				if err := os.WriteFile(outputFile, doc.Content, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outputFile, err)
				}
			}

			out := cmd.OutOrStdout()
			if wantsJSON(cmd) {
				doc.Content = nil
				return printJSON(out, doc)
			}

			fmt.Fprintf(out, "ID:       %s\n", doc.ID)
			fmt.Fprintf(out, "Name:     %s\n", doc.Name)
			fmt.Fprintf(out, "Project:  %s\n", doc.ProjectID)
			fmt.Fprintf(out, "Status:   %s\n", doc.Status)
			fmt.Fprintf(out, "Size:     %d bytes\n", doc.SizeBytes)
			if doc.SourceURL != "" {
				fmt.Fprintf(out, "Source:   %s\n", doc.SourceURL)
			}
			if doc.Attempts > 0 {
				fmt.Fprintf(out, "Attempts: %d\n", doc.Attempts)
			}
			if doc.LastError != "" {
				fmt.Fprintf(out, "Error:    %s\n", doc.LastError)
			}
			fmt.Fprintf(out, "Created:  %s\n", doc.CreatedAt)
			if showText {
				fmt.Fprintln(out)
				if doc.ParsedText == nil {
					fmt.Fprintln(out, "(not parsed yet)")
				} else {
					fmt.Fprintln(out, *doc.ParsedText)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showText, "text", false, "Print the parsed text")
	cmd.Flags().StringVar(&outputFile, "save", "", "Write the original document to this file")

	return cmd
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document_id>",
		Short: "Delete a document",
		Long:  "Deletes a document together with its parsed text and chunks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.tenantPath("/documents/" + url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			if _, err := api.Delete(path); err != nil {
				return fmt.Errorf("failed to delete document: %w", err)
			}

			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "deleted": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// RetryCmd creates the retry command.
func RetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <document_id>",
		Short: "Queue a failed document for another parse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.tenantPath("/documents/" + url.PathEscape(args[0]) + "/retry")
			if err != nil {
				return err
			}
			resp, err := api.Post(path, nil)
			if err != nil {
				return fmt.Errorf("failed to retry document: %w", err)
			}
			var result map[string]string
			if err := resp.Decode(&result); err != nil {
				return err
			}

			if wantsJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", result["id"], result["status"])
			return nil
		},
	}
}
