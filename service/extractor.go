package service

import (
	"context"
)

// ExtractedData holds the data groups an extractor produces for one
// contract document.
type ExtractedData struct {
	Parties               map[string]any
	AccountInfo           map[string]any
	FinancialDetails      map[string]any
	PaymentStructure      map[string]any
	RevenueClassification map[string]any
	SLA                   map[string]any
}

// Extractor pulls structured contract data out of a stored document.
type Extractor interface {
	Extract(ctx context.Context, objectName string) (*ExtractedData, error)
}

// StubExtractor returns the fixed extraction skeleton: every expected
// field present as a key, every value empty. A real document parser
// would fill these in.
type StubExtractor struct{}

func (StubExtractor) Extract(_ context.Context, _ string) (*ExtractedData, error) {
	return &ExtractedData{
		Parties: map[string]any{
			"customer":    nil,
			"vendor":      nil,
			"signatories": nil,
		},
		AccountInfo: map[string]any{
			"billing_contact":   nil,
			"technical_contact": nil,
		},
		FinancialDetails: map[string]any{
			"line_items":  nil,
			"total_value": nil,
			"currency":    nil,
			"taxes":       nil,
		},
		PaymentStructure: map[string]any{
			"terms":    nil,
			"schedule": nil,
			"method":   nil,
			"banking":  nil,
		},
		RevenueClassification: map[string]any{
			"type":          nil,
			"billing_cycle": nil,
			"renewal":       nil,
		},
		SLA: map[string]any{
			"metrics":   nil,
			"penalties": nil,
			"support":   nil,
		},
	}, nil
}
