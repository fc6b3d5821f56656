package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/logging"
	"github.com/cloo-solutions/docpipe/internal/parser"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/cloo-solutions/docpipe/internal/telemetry"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const (
	DefaultClaimLease    = 30 * time.Minute
	DefaultParseTimeout  = 10 * time.Minute
	DefaultDiscoveryPool = 8
)

// TenantLister enumerates provisioned tenants.
type TenantLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// DocumentClaimer claims documents that are ready to be parsed.
type DocumentClaimer interface {
	ClaimForParsing(ctx context.Context, tenantID string, limit int, lease time.Duration, claimToken string) ([]*domain.Document, error)
}

// Lifecycle records the outcome of a parse attempt.
type Lifecycle interface {
	PersistParsed(ctx context.Context, doc *domain.Document, parsed *domain.ParsedDocument) (bool, error)
	ResetOnFailure(ctx context.Context, doc *domain.Document, cause error) (domain.DocumentStatus, error)
}

// CycleReport summarizes one ingestion cycle.
type CycleReport struct {
	Tenants   int
	Claimed   int
	Parsed    int
	Persisted int
	Failed    int
	Skipped   int
}

// IngestionConfig tunes an IngestionProcessor. Zero values take defaults;
// a non-positive BatchSize claims every eligible document.
type IngestionConfig struct {
	BatchSize     int
	Lease         time.Duration
	ParseTimeout  time.Duration
	DiscoveryPool int
}

// IngestionProcessor runs the parse stage of the pipeline: it claims pending
// documents across all tenants, parses them one at a time and records each
// outcome in its own transaction.
type IngestionProcessor struct {
	tenants   TenantLister
	docs      DocumentClaimer
	lifecycle Lifecycle
	stager    parser.Stager
	parser    parser.Parser
	cfg       IngestionConfig
	pool      *ants.Pool
	uuidGen   service.UUIDGenerator
}

func NewIngestionProcessor(
	tenants TenantLister,
	docs DocumentClaimer,
	lifecycle Lifecycle,
	stager parser.Stager,
	p parser.Parser,
	cfg IngestionConfig,
) (*IngestionProcessor, error) {
	if cfg.Lease <= 0 {
		cfg.Lease = DefaultClaimLease
	}
	if cfg.ParseTimeout <= 0 {
		cfg.ParseTimeout = DefaultParseTimeout
	}
	if cfg.DiscoveryPool <= 0 {
		cfg.DiscoveryPool = DefaultDiscoveryPool
	}
	pool, err := ants.NewPool(cfg.DiscoveryPool)
	if err != nil {
		return nil, fmt.Errorf("create discovery pool: %w", err)
	}
	return &IngestionProcessor{
		tenants:   tenants,
		docs:      docs,
		lifecycle: lifecycle,
		stager:    stager,
		parser:    p,
		cfg:       cfg,
		pool:      pool,
		uuidGen:   &service.DefaultUUIDGenerator{},
	}, nil
}

// Close releases the discovery pool.
func (p *IngestionProcessor) Close() {
	p.pool.Release()
}

func (p *IngestionProcessor) ProcessJobs(ctx context.Context) error {
	_, err := p.RunCycle(ctx)
	return err
}

// RunCycle performs one full discover, parse and persist pass. Per-document
// failures are recorded on the document and counted; only a failure to list
// tenants aborts the cycle.
func (p *IngestionProcessor) RunCycle(ctx context.Context) (CycleReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.cycle", telemetry.SpanAttributes{Operation: "ingest"})
	defer span.End()
	log := logging.FromContext(ctx)

	var report CycleReport
	tenantIDs, err := p.tenants.ListIDs(ctx)
	if err != nil {
		span.SetError(err)
		return report, fmt.Errorf("list tenants: %w", err)
	}
	report.Tenants = len(tenantIDs)

	claimed := p.discover(ctx, tenantIDs)
	report.Claimed = len(claimed)
	if len(claimed) == 0 {
		log.Info("no new documents", zap.Int("tenants", report.Tenants))
		return report, nil
	}

	for _, doc := range claimed {
		if ctx.Err() != nil {
			// Unprocessed claims are picked up again once their lease expires.
			log.Warn("ingestion cycle interrupted", zap.Error(ctx.Err()))
			break
		}
		p.ingest(ctx, doc, &report)
	}

	log.Info("ingestion cycle complete",
		zap.Int("tenants", report.Tenants),
		zap.Int("claimed", report.Claimed),
		zap.Int("parsed", report.Parsed),
		zap.Int("persisted", report.Persisted),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// discover claims documents in every tenant concurrently. Results keep the
// tenant order so a cycle is deterministic for a given database state.
func (p *IngestionProcessor) discover(ctx context.Context, tenantIDs []string) []*domain.Document {
	log := logging.FromContext(ctx)
	token := p.uuidGen.NewString()
	perTenant := make([][]*domain.Document, len(tenantIDs))

	var wg sync.WaitGroup
	for i, tenantID := range tenantIDs {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			docs, err := p.docs.ClaimForParsing(ctx, tenantID, p.cfg.BatchSize, p.cfg.Lease, token)
			if err != nil {
				log.Error("claim failed", zap.String("tenant_id", tenantID), zap.Error(err))
				return
			}
			perTenant[i] = docs
		}
		if err := p.pool.Submit(task); err != nil {
			wg.Done()
			log.Error("discovery submit failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	wg.Wait()

	var out []*domain.Document
	for _, docs := range perTenant {
		out = append(out, docs...)
	}
	return out
}

func (p *IngestionProcessor) ingest(ctx context.Context, doc *domain.Document, report *CycleReport) {
	log := logging.FromContext(ctx).With(
		zap.String("tenant_id", doc.TenantID),
		zap.String("document_id", doc.ID),
	)

	parsed, err := p.parse(ctx, doc)
	if err != nil {
		log.Warn("parse failed", zap.Int("attempt", doc.Attempts), zap.Error(err))
		telemetry.CaptureDocumentError(ctx, doc.TenantID, doc.ID, err)
		report.Failed++
		p.reset(ctx, doc, err)
		return
	}
	report.Parsed++

	ok, err := p.lifecycle.PersistParsed(ctx, doc, parsed)
	switch {
	case err != nil && service.IsIntegrityError(err):
		log.Warn("parsed output does not match document", zap.Error(err))
		report.Skipped++
		p.reset(ctx, doc, err)
	case err != nil:
		log.Error("persist failed", zap.Error(err))
		report.Failed++
		p.reset(ctx, doc, err)
	case !ok:
		log.Warn("claim no longer held, result discarded")
		report.Skipped++
	default:
		telemetry.RecordTransition(ctx, doc.ID, string(domain.DocumentStatusQueuedParsing), string(domain.DocumentStatusQueuedEmbedding))
		log.Info("document parsed", zap.Int("chars", len(parsed.Text)))
		report.Persisted++
	}
}

func (p *IngestionProcessor) parse(ctx context.Context, doc *domain.Document) (*domain.ParsedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ParseTimeout)
	defer cancel()

	src, cleanup, err := p.stager.Stage(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("stage document: %w", err)
	}
	defer cleanup()

	parsed, err := p.parser.Parse(ctx, src)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("parse timed out after %s: %w", p.cfg.ParseTimeout, err)
		}
		return nil, err
	}
	return parsed, nil
}

func (p *IngestionProcessor) reset(ctx context.Context, doc *domain.Document, cause error) {
	// The cycle context may be the reason the parse failed.
	status, err := p.lifecycle.ResetOnFailure(context.WithoutCancel(ctx), doc, cause)
	if err != nil {
		logging.FromContext(ctx).Error("reset failed",
			zap.String("tenant_id", doc.TenantID),
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}
	telemetry.RecordTransition(ctx, doc.ID, string(domain.DocumentStatusQueuedParsing), string(status))
	if status == domain.DocumentStatusFailed {
		logging.FromContext(ctx).Warn("document failed permanently",
			zap.String("tenant_id", doc.TenantID),
			zap.String("document_id", doc.ID),
			zap.Int("attempts", doc.Attempts),
		)
	}
}
