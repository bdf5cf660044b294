package model

import (
	"testing"
)

func TestStatusConstants(t *testing.T) {
	statuses := []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}
	expected := []string{"pending", "processing", "completed", "failed"}

	for i, status := range statuses {
		if string(status) != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], status)
		}
		if !status.Valid() {
			t.Errorf("Expected '%s' to be valid", status)
		}
	}

	if Status("queued").Valid() {
		t.Error("Expected unknown status to be invalid")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Error("pending/processing must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed/failed must be terminal")
	}
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"pending to completed skips processing", StatusPending, StatusCompleted, false},
		{"processing to pending regresses", StatusProcessing, StatusPending, false},
		{"completed is terminal", StatusCompleted, StatusFailed, false},
		{"failed is terminal", StatusFailed, StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.allowed {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestNewContract(t *testing.T) {
	contract := NewContract("test-id", "test-id.pdf", "contract.pdf")

	if contract.Status != StatusPending {
		t.Errorf("Expected status pending, got %s", contract.Status)
	}
	if contract.Progress != 0 {
		t.Errorf("Expected progress 0, got %d", contract.Progress)
	}
	if contract.Score != 0 {
		t.Errorf("Expected score 0, got %d", contract.Score)
	}
	if len(contract.Gaps) != 0 {
		t.Errorf("Expected no gaps, got %v", contract.Gaps)
	}
	if contract.UploadedAt.IsZero() {
		t.Error("Expected uploaded_at to be set")
	}
}

func TestContractClone(t *testing.T) {
	original := NewContract("clone-id", "clone-id.pdf", "clone.pdf")
	original.Parties = map[string]any{"customer": "Acme"}
	original.Gaps = []string{"Missing parties.vendor"}

	clone := original.Clone()
	clone.Parties["customer"] = "Other"
	clone.Gaps[0] = "changed"
	clone.Status = StatusFailed

	if original.Parties["customer"] != "Acme" {
		t.Error("Clone mutation leaked into original parties")
	}
	if original.Gaps[0] != "Missing parties.vendor" {
		t.Error("Clone mutation leaked into original gaps")
	}
	if original.Status != StatusPending {
		t.Error("Clone mutation leaked into original status")
	}
}
