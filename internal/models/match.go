package models

import (
	"fmt"
	"time"
)

// RecordMatch is an asserted correspondence between one internal payment and
// one external record. It is created only by a successful matching pass and
// never mutated afterwards.
type RecordMatch struct {
	Payment    *PaymentRecord  `json:"payment"`
	External   *ExternalRecord `json:"external"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
	Strategy   string          `json:"strategy"`
	MatchedAt  time.Time       `json:"matchedAt"`
}

// NewRecordMatch creates a committed match between a payment and an external record
func NewRecordMatch(payment *PaymentRecord, external *ExternalRecord, confidence float64, reason, strategy string) *RecordMatch {
	return &RecordMatch{
		Payment:    payment,
		External:   external,
		Confidence: clampConfidence(confidence),
		Reason:     reason,
		Strategy:   strategy,
		MatchedAt:  time.Now().UTC(),
	}
}

// Validate checks the match invariants
func (m *RecordMatch) Validate() error {
	if m.Payment == nil {
		return fmt.Errorf("record match must reference a payment record")
	}
	if m.External == nil {
		return fmt.Errorf("record match must reference an external record")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("match confidence %f outside [0,1]", m.Confidence)
	}
	return nil
}

// String returns a string representation of the RecordMatch
func (m *RecordMatch) String() string {
	return fmt.Sprintf("RecordMatch{%s <-> %s, confidence: %.3f, %s}",
		m.Payment.TransactionID, m.External.ReferenceID, m.Confidence, m.Reason)
}

// MatchCandidate is a non-committing association between an external record
// and a payment under consideration, used for ranking before a final match is
// chosen and for explaining why no match was committed.
type MatchCandidate struct {
	External   *ExternalRecord `json:"external"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
}

// NewMatchCandidate creates a candidate with its confidence clamped to [0,1]
func NewMatchCandidate(external *ExternalRecord, confidence float64, reason string) MatchCandidate {
	return MatchCandidate{
		External:   external,
		Confidence: clampConfidence(confidence),
		Reason:     reason,
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
