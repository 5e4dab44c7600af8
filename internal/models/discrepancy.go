package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscrepancyType classifies a detected inconsistency between record sets
type DiscrepancyType string

const (
	DiscrepancyAmountMismatch    DiscrepancyType = "AMOUNT_MISMATCH"
	DiscrepancyDateMismatch      DiscrepancyType = "DATE_MISMATCH"
	DiscrepancyCurrencyMismatch  DiscrepancyType = "CURRENCY_MISMATCH"
	DiscrepancyStatusMismatch    DiscrepancyType = "STATUS_MISMATCH"
	DiscrepancyMissingInternal   DiscrepancyType = "MISSING_INTERNAL"
	DiscrepancyMissingExternal   DiscrepancyType = "MISSING_EXTERNAL"
	DiscrepancyDuplicateRecord   DiscrepancyType = "DUPLICATE_RECORD"
	DiscrepancyInvalidData       DiscrepancyType = "INVALID_DATA"
	DiscrepancyReferenceMismatch DiscrepancyType = "REFERENCE_MISMATCH"
)

// String returns the string representation of DiscrepancyType
func (t DiscrepancyType) String() string {
	return string(t)
}

// Severity grades how serious a discrepancy is. Severities are ordered:
// low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// Rank returns the ordering rank of the severity, low first
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether s is at least as severe as other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// MaxSeverity returns the more severe of two severities
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Discrepancy is a detected inconsistency between matched records, or the
// absence of an expected counterpart. Created by the analyzer, immutable,
// consumed by the resolver.
type Discrepancy struct {
	ID               string            `json:"id"`
	Type             DiscrepancyType   `json:"type"`
	Severity         Severity          `json:"severity"`
	Payment          *PaymentRecord    `json:"payment,omitempty"`
	External         *ExternalRecord   `json:"external,omitempty"`
	Description      string            `json:"description"`
	AmountDifference decimal.Decimal   `json:"amountDifference"`
	DateDifference   time.Duration     `json:"dateDifference,omitempty"`
	Details          map[string]string `json:"details,omitempty"`
	DetectedAt       time.Time         `json:"detectedAt"`
}

// NewDiscrepancy creates a discrepancy with a fresh id and detection timestamp
func NewDiscrepancy(dType DiscrepancyType, severity Severity, description string) *Discrepancy {
	return &Discrepancy{
		ID:          uuid.NewString(),
		Type:        dType,
		Severity:    severity,
		Description: description,
		DetectedAt:  time.Now().UTC(),
	}
}

// Validate checks the discrepancy invariants
func (d *Discrepancy) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("discrepancy must have an id")
	}
	if d.Payment == nil && d.External == nil {
		return fmt.Errorf("discrepancy must reference at least one record")
	}
	if d.Severity.Rank() < 0 {
		return fmt.Errorf("invalid severity: %s", d.Severity)
	}
	return nil
}

// String returns a string representation of the Discrepancy
func (d *Discrepancy) String() string {
	ref := "-"
	if d.Payment != nil {
		ref = d.Payment.TransactionID
	} else if d.External != nil {
		ref = d.External.ReferenceID
	}
	return fmt.Sprintf("Discrepancy{%s, %s, %s: %s}", d.Type, d.Severity, ref, d.Description)
}

// ResolutionAction is the disposition applied to a discrepancy
type ResolutionAction string

const (
	ActionAutoResolved           ResolutionAction = "AUTO_RESOLVED"
	ActionManualReview           ResolutionAction = "MANUAL_REVIEW"
	ActionSystemCorrection       ResolutionAction = "SYSTEM_CORRECTION"
	ActionEscalated              ResolutionAction = "ESCALATED"
	ActionIgnoredWithinTolerance ResolutionAction = "IGNORED_WITHIN_TOLERANCE"
	ActionPendingApproval        ResolutionAction = "PENDING_APPROVAL"
	ActionRejected               ResolutionAction = "REJECTED"
)

// String returns the string representation of ResolutionAction
func (a ResolutionAction) String() string {
	return string(a)
}

// DiscrepancyResolution is the outcome of resolving one discrepancy
type DiscrepancyResolution struct {
	DiscrepancyID string            `json:"discrepancyId"`
	Action        ResolutionAction  `json:"action"`
	Resolved      bool              `json:"resolved"`
	ResolvedBy    string            `json:"resolvedBy"`
	ResolvedAt    time.Time         `json:"resolvedAt"`
	Notes         string            `json:"notes,omitempty"`
	Data          map[string]string `json:"data,omitempty"`
}

// String returns a string representation of the DiscrepancyResolution
func (r DiscrepancyResolution) String() string {
	return fmt.Sprintf("Resolution{%s, %s, resolved: %t, by: %s}",
		r.DiscrepancyID, r.Action, r.Resolved, r.ResolvedBy)
}
