package model

import (
	"time"
)

// Status is the processing state of an uploaded contract.
type Status string

// Status values. completed and failed are terminal.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the move from s to next is allowed.
// Transitions only move forward; failed is reachable from any
// non-terminal state.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusProcessing:
		return s == StatusPending
	case StatusCompleted:
		return s == StatusProcessing
	case StatusFailed:
		return true
	}
	return false
}

// Contract represents one uploaded contract document and its
// processing state. A record is created at upload time and mutated
// only by the background parse for that record.
type Contract struct {
	ID               string    `json:"id"`
	ObjectName       string    `json:"object_name,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	UploadedAt       time.Time `json:"uploaded_at"`
	Status           Status    `json:"status"`
	Progress         int       `json:"progress"`
	ErrorMessage     string    `json:"error_message,omitempty"`

	// Extracted data groups. Empty until the background parse runs.
	Parties               map[string]any `json:"parties"`
	AccountInfo           map[string]any `json:"account_info"`
	FinancialDetails      map[string]any `json:"financial_details"`
	PaymentStructure      map[string]any `json:"payment_structure"`
	RevenueClassification map[string]any `json:"revenue_classification"`
	SLA                   map[string]any `json:"sla"`

	Score int      `json:"score"`
	Gaps  []string `json:"gaps"`
}

// NewContract returns a pending record for a freshly uploaded file.
func NewContract(id, objectName, originalFilename string) *Contract {
	return &Contract{
		ID:               id,
		ObjectName:       objectName,
		OriginalFilename: originalFilename,
		UploadedAt:       time.Now().UTC(),
		Status:           StatusPending,
		Progress:         0,
		Gaps:             []string{},
	}
}

// Clone returns a deep copy so store readers never alias writer state.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Parties = cloneGroup(c.Parties)
	clone.AccountInfo = cloneGroup(c.AccountInfo)
	clone.FinancialDetails = cloneGroup(c.FinancialDetails)
	clone.PaymentStructure = cloneGroup(c.PaymentStructure)
	clone.RevenueClassification = cloneGroup(c.RevenueClassification)
	clone.SLA = cloneGroup(c.SLA)
	if c.Gaps != nil {
		clone.Gaps = append([]string(nil), c.Gaps...)
	}
	return &clone
}

func cloneGroup(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
