// Package models defines the value types exchanged by the reconciliation
// engine: internal payment records, external bank/gateway records, matches,
// discrepancies, resolutions, settings, summaries and metrics.
//
// All monetary amounts use shopspring/decimal. Floating point is never used
// for amount equality or tolerance checks.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle status of an internal payment record
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusCancelled PaymentStatus = "CANCELLED"
	StatusRefunded  PaymentStatus = "REFUNDED"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid checks if the payment status is a known value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsSettledState reports whether the status represents money that actually moved
func (s PaymentStatus) IsSettledState() bool {
	return s == StatusCompleted || s == StatusRefunded
}

// ExternalSource identifies where an external record was obtained from
type ExternalSource string

const (
	SourceBankStatement  ExternalSource = "BANK_STATEMENT"
	SourcePaymentGateway ExternalSource = "PAYMENT_GATEWAY"
	SourceManualEntry    ExternalSource = "MANUAL_ENTRY"
	SourcePartnerFeed    ExternalSource = "PARTNER_FEED"
)

// String returns the string representation of ExternalSource
func (s ExternalSource) String() string {
	return string(s)
}

// IsValid checks if the external source is a known value
func (s ExternalSource) IsValid() bool {
	switch s {
	case SourceBankStatement, SourcePaymentGateway, SourceManualEntry, SourcePartnerFeed:
		return true
	}
	return false
}

// PaymentRecord is an internal payment as recorded by the book of record.
// Records are immutable once created; the engine references them for the
// duration of a run but never mutates them.
type PaymentRecord struct {
	TransactionID   string          `json:"transactionId"`
	OrderID         string          `json:"orderId"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Method          string          `json:"method"`
	Status          PaymentStatus   `json:"status"`
	TransactionDate time.Time       `json:"transactionDate"`
	CustomerID      string          `json:"customerId"`
	MerchantID      string          `json:"merchantId"`
}

// NewPaymentRecord creates a new PaymentRecord instance
func NewPaymentRecord(transactionID, orderID string, amount decimal.Decimal, currency string, status PaymentStatus, date time.Time) *PaymentRecord {
	return &PaymentRecord{
		TransactionID:   transactionID,
		OrderID:         orderID,
		Amount:          amount,
		Currency:        strings.ToUpper(strings.TrimSpace(currency)),
		Status:          status,
		TransactionDate: date,
	}
}

// Validate performs basic validation on the PaymentRecord
func (p *PaymentRecord) Validate() error {
	if strings.TrimSpace(p.TransactionID) == "" {
		return fmt.Errorf("payment record transaction ID cannot be empty")
	}

	if p.Amount.IsNegative() {
		return fmt.Errorf("payment record amount cannot be negative")
	}

	if strings.TrimSpace(p.Currency) == "" {
		return fmt.Errorf("payment record currency cannot be empty")
	}

	if p.Status != "" && !p.Status.IsValid() {
		return fmt.Errorf("invalid payment status: %s", p.Status)
	}

	if p.TransactionDate.IsZero() {
		return fmt.Errorf("payment record transaction date cannot be zero")
	}

	return nil
}

// String returns a string representation of the PaymentRecord
func (p *PaymentRecord) String() string {
	return fmt.Sprintf("PaymentRecord{ID: %s, Order: %s, Amount: %s %s, Status: %s, Date: %s}",
		p.TransactionID, p.OrderID, p.Amount.String(), p.Currency, p.Status,
		p.TransactionDate.Format(time.RFC3339))
}

// Equals compares two PaymentRecord instances for equality
func (p *PaymentRecord) Equals(other *PaymentRecord) bool {
	if other == nil {
		return false
	}

	return p.TransactionID == other.TransactionID &&
		p.OrderID == other.OrderID &&
		p.Amount.Equal(other.Amount) &&
		p.Currency == other.Currency &&
		p.Status == other.Status &&
		p.TransactionDate.Equal(other.TransactionDate)
}

// MarshalJSON implements custom JSON marshaling for PaymentRecord
func (p *PaymentRecord) MarshalJSON() ([]byte, error) {
	type Alias PaymentRecord
	return json.Marshal(&struct {
		Amount          string `json:"amount"`
		TransactionDate string `json:"transactionDate"`
		*Alias
	}{
		Amount:          p.Amount.String(),
		TransactionDate: p.TransactionDate.Format(time.RFC3339),
		Alias:           (*Alias)(p),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for PaymentRecord
func (p *PaymentRecord) UnmarshalJSON(data []byte) error {
	type Alias PaymentRecord
	aux := &struct {
		Amount          string `json:"amount"`
		TransactionDate string `json:"transactionDate"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	p.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	p.TransactionDate, err = time.Parse(time.RFC3339, aux.TransactionDate)
	if err != nil {
		return fmt.Errorf("invalid transaction date format: %w", err)
	}

	return nil
}

// ExternalRecord is a record obtained from a counterparty or bank feed
// describing the same economic event as an internal payment. Equality is
// defined by ReferenceID.
type ExternalRecord struct {
	ReferenceID       string            `json:"referenceId"`
	BankTransactionID string            `json:"bankTransactionId"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	Description       string            `json:"description"`
	SettlementDate    time.Time         `json:"settlementDate"`
	AccountNumber     string            `json:"accountNumber"`
	CounterpartyName  string            `json:"counterpartyName"`
	Source            ExternalSource    `json:"source"`
	AdditionalFields  map[string]string `json:"additionalFields,omitempty"`
}

// NewExternalRecord creates a new ExternalRecord instance
func NewExternalRecord(referenceID string, amount decimal.Decimal, currency, description string, settlementDate time.Time, source ExternalSource) *ExternalRecord {
	return &ExternalRecord{
		ReferenceID:    referenceID,
		Amount:         amount,
		Currency:       strings.ToUpper(strings.TrimSpace(currency)),
		Description:    description,
		SettlementDate: settlementDate,
		Source:         source,
	}
}

// Validate performs basic validation on the ExternalRecord
func (e *ExternalRecord) Validate() error {
	if strings.TrimSpace(e.ReferenceID) == "" {
		return fmt.Errorf("external record reference ID cannot be empty")
	}

	if e.Amount.IsNegative() {
		return fmt.Errorf("external record amount cannot be negative")
	}

	if strings.TrimSpace(e.Currency) == "" {
		return fmt.Errorf("external record currency cannot be empty")
	}

	if e.Source != "" && !e.Source.IsValid() {
		return fmt.Errorf("invalid external source: %s", e.Source)
	}

	if e.SettlementDate.IsZero() {
		return fmt.Errorf("external record settlement date cannot be zero")
	}

	return nil
}

// String returns a string representation of the ExternalRecord
func (e *ExternalRecord) String() string {
	return fmt.Sprintf("ExternalRecord{Ref: %s, Amount: %s %s, Source: %s, Settled: %s}",
		e.ReferenceID, e.Amount.String(), e.Currency, e.Source,
		e.SettlementDate.Format("2006-01-02"))
}

// Equals compares two ExternalRecord instances by reference identity
func (e *ExternalRecord) Equals(other *ExternalRecord) bool {
	if other == nil {
		return false
	}
	return e.ReferenceID == other.ReferenceID
}

// Field returns a value from the open additional-fields bag
func (e *ExternalRecord) Field(key string) (string, bool) {
	if e.AdditionalFields == nil {
		return "", false
	}
	v, ok := e.AdditionalFields[key]
	return v, ok
}

// MarshalJSON implements custom JSON marshaling for ExternalRecord
func (e *ExternalRecord) MarshalJSON() ([]byte, error) {
	type Alias ExternalRecord
	return json.Marshal(&struct {
		Amount         string `json:"amount"`
		SettlementDate string `json:"settlementDate"`
		*Alias
	}{
		Amount:         e.Amount.String(),
		SettlementDate: e.SettlementDate.Format(time.RFC3339),
		Alias:          (*Alias)(e),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for ExternalRecord
func (e *ExternalRecord) UnmarshalJSON(data []byte) error {
	type Alias ExternalRecord
	aux := &struct {
		Amount         string `json:"amount"`
		SettlementDate string `json:"settlementDate"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	e.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	e.SettlementDate, err = ParseTimeWithFormats(aux.SettlementDate)
	if err != nil {
		return fmt.Errorf("invalid settlement date format: %w", err)
	}

	return nil
}

// Utility functions for type conversion and validation

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParsePaymentStatus parses and validates a payment status from string
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if status == "" {
		return StatusCompleted, nil
	}
	if !status.IsValid() {
		return "", fmt.Errorf("invalid payment status '%s'", s)
	}
	return status, nil
}

// ParseExternalSource parses and validates an external source from string
func ParseExternalSource(s string) (ExternalSource, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "BANK", "BANK_STATEMENT", "STATEMENT":
		return SourceBankStatement, nil
	case "GATEWAY", "PAYMENT_GATEWAY":
		return SourcePaymentGateway, nil
	case "MANUAL", "MANUAL_ENTRY":
		return SourceManualEntry, nil
	case "PARTNER", "PARTNER_FEED":
		return SourcePartnerFeed, nil
	default:
		return "", fmt.Errorf("invalid external source '%s'", s)
	}
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	// Common time formats used in payment and settlement feeds
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"01/02/2006 15:04:05",
		"01/02/2006",
		"02-01-2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// SameCalendarDay reports whether two instants fall on the same calendar day (UTC)
func SameCalendarDay(a, b time.Time) bool {
	return a.UTC().Format("2006-01-02") == b.UTC().Format("2006-01-02")
}

// DaysBetween returns the absolute whole-day distance between two instants
func DaysBetween(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// CompareAmountsWithTolerance compares two decimal amounts with an inclusive tolerance:
// a difference exactly equal to the tolerance is considered within it.
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(tolerance)
}

// CompareDatesWithTolerance compares two dates within an inclusive day tolerance
func CompareDatesWithTolerance(a, b time.Time, toleranceDays int) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}

	maxDiff := time.Duration(toleranceDays) * 24 * time.Hour
	return diff <= maxDiff
}

// CreatePaymentRecordFromCSV creates a PaymentRecord from CSV field values
func CreatePaymentRecordFromCSV(transactionID, orderID, amountStr, currency, statusStr, dateStr string) (*PaymentRecord, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in CSV: %w", err)
	}

	status, err := ParsePaymentStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("invalid status in CSV: %w", err)
	}

	date, err := ParseTimeWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction date in CSV: %w", err)
	}

	record := NewPaymentRecord(strings.TrimSpace(transactionID), strings.TrimSpace(orderID), amount, currency, status, date)

	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid payment record data: %w", err)
	}

	return record, nil
}

// CreateExternalRecordFromCSV creates an ExternalRecord from CSV field values
func CreateExternalRecordFromCSV(referenceID, amountStr, currency, description, dateStr, sourceStr string) (*ExternalRecord, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in CSV: %w", err)
	}

	source, err := ParseExternalSource(sourceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid source in CSV: %w", err)
	}

	date, err := ParseTimeWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid settlement date in CSV: %w", err)
	}

	record := NewExternalRecord(strings.TrimSpace(referenceID), amount, currency, strings.TrimSpace(description), date, source)

	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid external record data: %w", err)
	}

	return record, nil
}
