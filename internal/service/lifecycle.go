package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/logging"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds how many times a document is claimed for parsing
// before it is marked FAILED.
const DefaultMaxAttempts = 3

const maxErrorLength = 2000

// LifecycleManager owns every document status transition.
type LifecycleManager struct {
	docs        DocumentRepository
	txRunner    TxRunner
	maxAttempts int
	now         func() time.Time
}

func NewLifecycleManager(docs DocumentRepository, txRunner TxRunner, maxAttempts int) *LifecycleManager {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &LifecycleManager{
		docs:        docs,
		txRunner:    txRunner,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// MaxAttempts returns the configured attempt cap.
func (m *LifecycleManager) MaxAttempts() int {
	return m.maxAttempts
}

// Advance moves a document from t.From to t.To if it is still in t.From. It
// returns false, without error, when another actor already moved it.
func (m *LifecycleManager) Advance(ctx context.Context, tenantID string, t domain.Transition) (bool, error) {
	if !domain.CanTransition(t.From, t.To) {
		return false, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidOperation,
			domain.ErrInvalidTransition.Message, fmt.Errorf("%s -> %s", t.From, t.To))
	}
	return m.docs.Advance(ctx, tenantID, t)
}

// PersistParsed records a successful parse in one transaction: the document
// moves QUEUED_PARSING -> QUEUED_EMBEDDING under its claim token and its text
// is inserted into the vectorizable-text table. When the claim no longer holds
// nothing is written and false is returned.
func (m *LifecycleManager) PersistParsed(ctx context.Context, doc *domain.Document, parsed *domain.ParsedDocument) (bool, error) {
	if parsed == nil {
		return false, domain.ErrCorrelationMismatch
	}
	if got := parsed.CorrelationID(); got != doc.ID {
		return false, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidOperation,
			domain.ErrCorrelationMismatch.Message, fmt.Errorf("expected %q, got %q", doc.ID, got))
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return false, fmt.Errorf("parser returned no text: %w", domain.ErrEmptyDocument)
	}

	text := parsed.Text
	claimed := false
	err := m.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		ok, err := repos.Documents().Advance(ctx, doc.TenantID, domain.Transition{
			DocumentID: doc.ID,
			From:       domain.DocumentStatusQueuedParsing,
			To:         domain.DocumentStatusQueuedEmbedding,
			ClaimToken: doc.ClaimToken,
			ParsedText: &text,
		})
		if err != nil {
			return fmt.Errorf("advance document: %w", err)
		}
		if !ok {
			return nil
		}
		if _, err := repos.VectorTexts().Insert(ctx, doc.TenantID, domain.NewVectorText(doc, parsed, m.now())); err != nil {
			return fmt.Errorf("insert vector text: %w", err)
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// ResetOnFailure releases the document's claim after a failed parse. It
// returns the status the document ended in: PENDING when attempts remain,
// FAILED otherwise. An empty status means the claim had already moved on.
func (m *LifecycleManager) ResetOnFailure(ctx context.Context, doc *domain.Document, cause error) (domain.DocumentStatus, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	msg = truncateError(msg, maxErrorLength)

	status, ok, err := m.docs.ResetOnFailure(ctx, doc.TenantID, doc.ID, doc.ClaimToken, msg, m.maxAttempts)
	if err != nil {
		return "", fmt.Errorf("reset document %s: %w", doc.ID, err)
	}
	if !ok {
		logging.FromContext(ctx).Warn("reset skipped: claim no longer held",
			zap.String("tenant_id", doc.TenantID),
			zap.String("document_id", doc.ID),
		)
		return "", nil
	}
	return status, nil
}

// MarkReady records that the external vectorizer finished embedding.
func (m *LifecycleManager) MarkReady(ctx context.Context, tenantID, documentID string) (bool, error) {
	return m.Advance(ctx, tenantID, domain.Transition{
		DocumentID: documentID,
		From:       domain.DocumentStatusQueuedEmbedding,
		To:         domain.DocumentStatusReady,
	})
}

// Retry gives a FAILED document a fresh attempt budget.
func (m *LifecycleManager) Retry(ctx context.Context, tenantID, documentID string) error {
	ok, err := m.docs.Retry(ctx, tenantID, documentID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	doc, err := m.docs.GetByID(ctx, tenantID, documentID)
	if err != nil {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeInvalidOperation,
		"only failed documents can be retried", fmt.Errorf("document is %s", doc.Status))
}

// IsIntegrityError reports errors that mean the parsed output cannot be
// trusted for the claimed document.
func IsIntegrityError(err error) bool {
	return errors.Is(err, domain.ErrCorrelationMismatch)
}

// truncateError cuts msg to at most limit bytes without splitting a rune;
// Postgres rejects invalid UTF-8 in text columns.
func truncateError(msg string, limit int) string {
	msg = strings.ToValidUTF8(msg, "\uFFFD")
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
