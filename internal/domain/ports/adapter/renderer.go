package adapter

import (
	"context"
	"time"

	"quote-orchestrator/internal/domain/model"
)

// QuoteDocument is the data record a renderer turns into document bytes.
type QuoteDocument struct {
	JobID     string
	TenantID  string
	LeadID    string
	Customer  model.IntakePayload
	Substrate string
	Issues    []string
	Price     *model.PriceBreakdown
	CreatedAt time.Time
}

// Renderer converts a quote record into a document in at least one
// exchangeable format.
type Renderer interface {
	Render(ctx context.Context, doc QuoteDocument) ([]byte, error)

	// ContentType reports the MIME type of rendered documents, and Ext the
	// file extension used for artifact keys.
	ContentType() string
	Ext() string
}
