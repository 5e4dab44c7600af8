package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// FeedGenerator produces paired payment and settlement CSV files with a
// controllable share of injected discrepancies, so the reconcile command can
// be exercised against realistic data.
type FeedGenerator struct {
	Count     int
	StartDate time.Time
	EndDate   time.Time
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	rng       *rand.Rand
}

type paymentRow struct {
	TransactionID   string
	OrderID         string
	Amount          decimal.Decimal
	Currency        string
	Status          string
	TransactionDate time.Time
}

type settlementRow struct {
	ReferenceID    string
	Amount         decimal.Decimal
	Currency       string
	Description    string
	SettlementDate time.Time
	Source         string
}

var currencies = []string{"USD", "USD", "USD", "EUR", "GBP"}

func main() {
	var (
		paymentsOut    = flag.String("payments-output", "generated_payments.csv", "Payments CSV output path")
		settlementsOut = flag.String("settlements-output", "generated_settlements.csv", "Settlements CSV output path")
		count          = flag.Int("count", 1000, "Number of payments to generate")
		startDate      = flag.String("start-date", "2024-01-01", "Start date (YYYY-MM-DD)")
		endDate        = flag.String("end-date", "2024-12-31", "End date (YYYY-MM-DD)")
		minAmount      = flag.Float64("min-amount", 0.01, "Minimum payment amount")
		maxAmount      = flag.Float64("max-amount", 50000.00, "Maximum payment amount")
		driftRate      = flag.Float64("drift-rate", 0.05, "Share of settlements with a perturbed amount")
		missingRate    = flag.Float64("missing-rate", 0.05, "Share of payments with no settlement")
		extraRate      = flag.Float64("extra-rate", 0.03, "Share of settlements with no payment")
		dateSkewDays   = flag.Int("date-skew-days", 2, "Maximum settlement date lag in days")
		seed           = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
	)
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}

	generator := &FeedGenerator{
		Count:     *count,
		StartDate: start,
		EndDate:   end,
		MinAmount: decimal.NewFromFloat(*minAmount),
		MaxAmount: decimal.NewFromFloat(*maxAmount),
		rng:       rand.New(rand.NewSource(*seed)),
	}

	payments := generator.GeneratePayments()
	settlements := generator.GenerateSettlements(payments, *driftRate, *missingRate, *extraRate, *dateSkewDays)

	if err := writePaymentsCSV(*paymentsOut, payments); err != nil {
		log.Fatalf("Failed to write payments CSV: %v", err)
	}
	if err := writeSettlementsCSV(*settlementsOut, settlements); err != nil {
		log.Fatalf("Failed to write settlements CSV: %v", err)
	}

	fmt.Printf("Generated %d payments in %s\n", len(payments), *paymentsOut)
	fmt.Printf("Generated %d settlements in %s\n", len(settlements), *settlementsOut)
	fmt.Printf("Date range: %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("Seed used: %d\n", *seed)
}

// GeneratePayments creates payments distributed evenly across the date range
func (g *FeedGenerator) GeneratePayments() []paymentRow {
	payments := make([]paymentRow, g.Count)
	duration := g.EndDate.Sub(g.StartDate)
	amountRange := g.MaxAmount.Sub(g.MinAmount)

	for i := 0; i < g.Count; i++ {
		txTime := g.StartDate.Add(time.Duration(g.rng.Int63n(int64(duration))))
		amount := decimal.NewFromFloat(g.rng.Float64()).Mul(amountRange).Add(g.MinAmount).Round(2)

		status := "COMPLETED"
		switch {
		case g.rng.Float64() < 0.02:
			status = "FAILED"
		case g.rng.Float64() < 0.03:
			status = "PENDING"
		}

		payments[i] = paymentRow{
			TransactionID:   fmt.Sprintf("TXN-%06d", i+1),
			OrderID:         fmt.Sprintf("ORD-%06d", i+1),
			Amount:          amount,
			Currency:        currencies[g.rng.Intn(len(currencies))],
			Status:          status,
			TransactionDate: txTime,
		}
	}

	return payments
}

// GenerateSettlements derives settlements from the payments, dropping some,
// perturbing some amounts, and appending unmatched extras.
func (g *FeedGenerator) GenerateSettlements(payments []paymentRow, driftRate, missingRate, extraRate float64, dateSkewDays int) []settlementRow {
	settlements := make([]settlementRow, 0, len(payments))

	for _, p := range payments {
		if g.rng.Float64() < missingRate {
			continue
		}

		amount := p.Amount
		if g.rng.Float64() < driftRate {
			// drift up to 5% in either direction
			drift := decimal.NewFromFloat((g.rng.Float64() - 0.5) * 0.1)
			amount = amount.Add(amount.Mul(drift)).Round(2)
		}

		skew := time.Duration(g.rng.Intn(dateSkewDays+1)) * 24 * time.Hour
		source := "BANK_STATEMENT"
		if g.rng.Float64() < 0.3 {
			source = "PAYMENT_GATEWAY"
		}

		settlements = append(settlements, settlementRow{
			ReferenceID:    fmt.Sprintf("REF-%06d", len(settlements)+1),
			Amount:         amount,
			Currency:       p.Currency,
			Description:    fmt.Sprintf("settlement for %s", p.TransactionID),
			SettlementDate: p.TransactionDate.Add(skew),
			Source:         source,
		})
	}

	extras := int(float64(len(payments)) * extraRate)
	duration := g.EndDate.Sub(g.StartDate)
	amountRange := g.MaxAmount.Sub(g.MinAmount)
	for i := 0; i < extras; i++ {
		settlements = append(settlements, settlementRow{
			ReferenceID:    fmt.Sprintf("REF-X%05d", i+1),
			Amount:         decimal.NewFromFloat(g.rng.Float64()).Mul(amountRange).Add(g.MinAmount).Round(2),
			Currency:       currencies[g.rng.Intn(len(currencies))],
			Description:    "unattributed settlement",
			SettlementDate: g.StartDate.Add(time.Duration(g.rng.Int63n(int64(duration)))),
			Source:         "BANK_STATEMENT",
		})
	}

	return settlements
}

func writePaymentsCSV(path string, payments []paymentRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"transaction_id", "order_id", "amount", "currency", "status", "transaction_date"}); err != nil {
		return err
	}
	for _, p := range payments {
		record := []string{
			p.TransactionID,
			p.OrderID,
			p.Amount.String(),
			p.Currency,
			p.Status,
			p.TransactionDate.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func writeSettlementsCSV(path string, settlements []settlementRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"reference_id", "amount", "currency", "description", "settlement_date", "source"}); err != nil {
		return err
	}
	for _, s := range settlements {
		record := []string{
			s.ReferenceID,
			s.Amount.String(),
			s.Currency,
			s.Description,
			s.SettlementDate.UTC().Format(time.RFC3339),
			s.Source,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
