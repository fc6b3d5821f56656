package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/logging"
	"github.com/cloo-solutions/docpipe/internal/service"
	"go.uber.org/zap"
)

// TenantVectorizer embeds pending text for one tenant.
type TenantVectorizer interface {
	VectorizeTenant(ctx context.Context, tenantID string) (service.VectorizeReport, error)
}

// VectorizerProcessor runs the embedding stage across every tenant.
type VectorizerProcessor struct {
	tenants    TenantLister
	vectorizer TenantVectorizer
}

func NewVectorizerProcessor(tenants TenantLister, vectorizer TenantVectorizer) *VectorizerProcessor {
	return &VectorizerProcessor{tenants: tenants, vectorizer: vectorizer}
}

// ProcessJobs vectorizes each tenant in turn. A failing tenant does not stop
// the others; the joined errors are returned at the end.
func (p *VectorizerProcessor) ProcessJobs(ctx context.Context) error {
	log := logging.FromContext(ctx)

	tenantIDs, err := p.tenants.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	var (
		total service.VectorizeReport
		errs  []error
	)
	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		report, err := p.vectorizer.VectorizeTenant(ctx, tenantID)
		if err != nil {
			log.Error("vectorize tenant failed", zap.String("tenant_id", tenantID), zap.Error(err))
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
			continue
		}
		total.Embedded += report.Embedded
		total.Failed += report.Failed
		total.Chunks += report.Chunks
	}

	if total.Embedded > 0 || total.Failed > 0 {
		log.Info("vectorization pass complete",
			zap.Int("tenants", len(tenantIDs)),
			zap.Int("embedded", total.Embedded),
			zap.Int("failed", total.Failed),
			zap.Int("chunks", total.Chunks),
		)
	}
	return errors.Join(errs...)
}
