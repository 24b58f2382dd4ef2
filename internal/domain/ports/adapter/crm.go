package adapter

import "context"

// CRMPush describes the contact, deal and quote link pushed to the external
// CRM after a quote completes.
type CRMPush struct {
	TenantID string
	LeadID   string
	Name     string
	Email    string
	Phone    string
	DealName string
	Amount   float64
	NoteURL  string
}

type CRMResult struct {
	ContactID string
	DealID    string
}

// CRMClient pushes a completed quote to the external CRM. Push failures are
// logged and recorded but never fail the job.
type CRMClient interface {
	Push(ctx context.Context, req CRMPush) (CRMResult, error)
}
