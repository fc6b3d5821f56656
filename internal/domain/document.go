package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentStatus is the processing state of a document.
type DocumentStatus string

const (
	DocumentStatusPending         DocumentStatus = "PENDING"
	DocumentStatusQueuedParsing   DocumentStatus = "QUEUED_PARSING"
	DocumentStatusQueuedEmbedding DocumentStatus = "QUEUED_EMBEDDING"
	DocumentStatusReady           DocumentStatus = "READY"
	// DocumentStatusFailed is terminal until an operator retries the document.
	DocumentStatusFailed DocumentStatus = "FAILED"
)

// DefaultFileType is used when the uploaded name carries no extension.
const DefaultFileType = "pdf"

// DocumentStatuses lists every status in pipeline order.
var DocumentStatuses = []DocumentStatus{
	DocumentStatusPending,
	DocumentStatusQueuedParsing,
	DocumentStatusQueuedEmbedding,
	DocumentStatusReady,
	DocumentStatusFailed,
}

// Rank orders the forward pipeline. FAILED sits outside it and returns -1.
func (s DocumentStatus) Rank() int {
	switch s {
	case DocumentStatusPending:
		return 0
	case DocumentStatusQueuedParsing:
		return 1
	case DocumentStatusQueuedEmbedding:
		return 2
	case DocumentStatusReady:
		return 3
	}
	return -1
}

// Valid reports whether s is a known status.
func (s DocumentStatus) Valid() bool {
	for _, st := range DocumentStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// ParseDocumentStatus converts a string into a DocumentStatus.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	st := DocumentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidDocumentStatus
	}
	return st, nil
}

// CanTransition reports whether a document may move from one status to another.
//
// Forward moves go one step at a time. A failed parse resets QUEUED_PARSING to
// PENDING, or to FAILED once attempts are exhausted; an operator may move a
// FAILED document back to PENDING.
func CanTransition(from, to DocumentStatus) bool {
	if from.Rank() >= 0 && to.Rank() == from.Rank()+1 {
		return true
	}
	switch {
	case from == DocumentStatusQueuedParsing && to == DocumentStatusPending:
		return true
	case from == DocumentStatusQueuedParsing && to == DocumentStatusFailed:
		return true
	case from == DocumentStatusFailed && to == DocumentStatusPending:
		return true
	}
	return false
}

// Document is an uploaded file and its processing state.
type Document struct {
	ID           string
	TenantID     string
	ProjectID    string
	UploadedName string
	SourceURL    string
	Bytes        []byte
	Metadata     map[string]any
	Status       DocumentStatus
	ParsedText   *string
	Summary      *string
	UploadedBy   string
	Attempts     int
	LastError    string
	ClaimToken   string
	ClaimedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// NewDocument creates a PENDING document.
func NewDocument(id, tenantID, projectID, uploadedName, uploadedBy string, data []byte, metadata map[string]any, createdAt time.Time) *Document {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Document{
		ID:           id,
		TenantID:     tenantID,
		ProjectID:    projectID,
		UploadedName: uploadedName,
		Bytes:        data,
		Metadata:     metadata,
		Status:       DocumentStatusPending,
		UploadedBy:   uploadedBy,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// FileType derives the parser file-type hint from the uploaded name.
func (d *Document) FileType() string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(d.UploadedName)), ".")
	if ext == "" {
		return DefaultFileType
	}
	return ext
}

// NeedsParsing reports whether the orchestrator should pick the document up.
// A QUEUED_PARSING document whose claim is older than lease is treated as
// abandoned by a crashed worker.
func (d *Document) NeedsParsing(now time.Time, lease time.Duration) bool {
	if d.DeletedAt != nil {
		return false
	}
	switch d.Status {
	case DocumentStatusPending:
		return true
	case DocumentStatusQueuedParsing:
		return d.ClaimedAt == nil || now.Sub(*d.ClaimedAt) >= lease
	}
	return false
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.TenantID == "" {
		return fmt.Errorf("document TenantID is required")
	}

	if d.ProjectID == "" {
		return fmt.Errorf("document ProjectID is required")
	}

	if strings.TrimSpace(d.UploadedName) == "" {
		return fmt.Errorf("document UploadedName is required")
	}

	if len(d.Bytes) == 0 {
		return ErrEmptyDocument
	}

	if !d.Status.Valid() {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

// Transition describes a conditional status change.
type Transition struct {
	DocumentID string
	From       DocumentStatus
	To         DocumentStatus
	// ClaimToken, when set, must match the token stored by the claim.
	ClaimToken string
	ParsedText *string
	Summary    *string
}

// StatusCounts summarizes documents per status for a tenant.
type StatusCounts struct {
	Total    int64                    `json:"total"`
	Projects int64                    `json:"projects"`
	ByStatus map[DocumentStatus]int64 `json:"by_status"`
}
