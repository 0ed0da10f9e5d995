package model

import "time"

// MappingEntry is one persisted normalized-name → company-id mapping.
type MappingEntry struct {
	NormalizedName string    `json:"normalized_name"`
	CompanyID      string    `json:"company_id"`
	SourceTier     Tier      `json:"source_tier"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}

// RequestStatus is the lifecycle state of a backfill request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusDone       RequestStatus = "done"
	StatusFailed     RequestStatus = "failed"
)

// EnrichmentRequest is one backfill queue row. At most one request with an
// active status (pending or processing) exists per normalized name; done and
// failed rows may accumulate for audit.
type EnrichmentRequest struct {
	ID             string        `json:"id"`
	RawName        string        `json:"raw_name"`
	NormalizedName string        `json:"normalized_name"`
	FallbackID     string        `json:"fallback_id"`
	Status         RequestStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}
