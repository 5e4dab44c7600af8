// Package feeds loads payment and external record batches from CSV files.
//
// Feeds are the external import collaborator of the engine: they construct
// and own the record values, the engine only references them. Malformed rows
// are rejected and counted with row-numbered reasons; a partially valid file
// is never an error.
package feeds

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/pkg/errors"
	"payment-reconciliation-engine/pkg/logger"
)

// FeedConfig holds shared CSV parsing options
type FeedConfig struct {
	HasHeader     bool              `json:"has_header"`
	Delimiter     rune              `json:"delimiter"`
	ColumnAliases map[string]string `json:"column_aliases,omitempty"`
}

// PaymentFeedConfig maps CSV columns onto PaymentRecord fields
type PaymentFeedConfig struct {
	FeedConfig

	TransactionIDColumn string `json:"transaction_id_column"`
	OrderIDColumn       string `json:"order_id_column"`
	AmountColumn        string `json:"amount_column"`
	CurrencyColumn      string `json:"currency_column"`
	StatusColumn        string `json:"status_column"`
	DateColumn          string `json:"date_column"`
}

// DefaultPaymentFeedConfig returns the standard payment feed layout
func DefaultPaymentFeedConfig() *PaymentFeedConfig {
	return &PaymentFeedConfig{
		FeedConfig: FeedConfig{
			HasHeader: true,
			Delimiter: ',',
			ColumnAliases: map[string]string{
				"id":             "transaction_id",
				"txn_id":         "transaction_id",
				"trx_id":         "transaction_id",
				"order":          "order_id",
				"amt":            "amount",
				"value":          "amount",
				"ccy":            "currency",
				"state":          "status",
				"date":           "transaction_date",
				"timestamp":      "transaction_date",
				"datetime":       "transaction_date",
				"payment_date":   "transaction_date",
			},
		},
		TransactionIDColumn: "transaction_id",
		OrderIDColumn:       "order_id",
		AmountColumn:        "amount",
		CurrencyColumn:      "currency",
		StatusColumn:        "status",
		DateColumn:          "transaction_date",
	}
}

// ExternalFeedConfig maps CSV columns onto ExternalRecord fields
type ExternalFeedConfig struct {
	FeedConfig

	ReferenceIDColumn string `json:"reference_id_column"`
	AmountColumn      string `json:"amount_column"`
	CurrencyColumn    string `json:"currency_column"`
	DescriptionColumn string `json:"description_column"`
	DateColumn        string `json:"date_column"`
	SourceColumn      string `json:"source_column"`
}

// DefaultExternalFeedConfig returns the standard external feed layout
func DefaultExternalFeedConfig() *ExternalFeedConfig {
	return &ExternalFeedConfig{
		FeedConfig: FeedConfig{
			HasHeader: true,
			Delimiter: ',',
			ColumnAliases: map[string]string{
				"id":              "reference_id",
				"ref":             "reference_id",
				"reference":       "reference_id",
				"identifier":      "reference_id",
				"amt":             "amount",
				"value":           "amount",
				"ccy":             "currency",
				"desc":            "description",
				"narrative":       "description",
				"date":            "settlement_date",
				"value_date":      "settlement_date",
				"posting_date":    "settlement_date",
				"statement_date":  "settlement_date",
			},
		},
		ReferenceIDColumn: "reference_id",
		AmountColumn:      "amount",
		CurrencyColumn:    "currency",
		DescriptionColumn: "description",
		DateColumn:        "settlement_date",
		SourceColumn:      "source",
	}
}

// PaymentLoadResult is the outcome of loading one payment feed
type PaymentLoadResult struct {
	Records  []*models.PaymentRecord `json:"records"`
	Accepted int                     `json:"accepted"`
	Rejected int                     `json:"rejected"`
	Reasons  []string                `json:"reasons,omitempty"`
}

// ExternalLoadResult is the outcome of loading one external feed
type ExternalLoadResult struct {
	Records  []*models.ExternalRecord `json:"records"`
	Accepted int                      `json:"accepted"`
	Rejected int                      `json:"rejected"`
	Reasons  []string                 `json:"reasons,omitempty"`
}

// PaymentFeed loads internal payment records from CSV
type PaymentFeed struct {
	config *PaymentFeedConfig
	log    logger.Logger
}

// NewPaymentFeed creates a payment feed, falling back to the default layout
// when config is nil.
func NewPaymentFeed(config *PaymentFeedConfig) *PaymentFeed {
	if config == nil {
		config = DefaultPaymentFeedConfig()
	}
	return &PaymentFeed{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("payment_feed"),
	}
}

// LoadFile loads payment records from the file at path
func (f *PaymentFeed) LoadFile(path string) (*PaymentLoadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FeedError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FeedError(errors.CodeInvalidFormat, path, err)
	}
	defer file.Close()

	return f.Load(file, path)
}

// Load loads payment records from r; name is used in error reporting
func (f *PaymentFeed) Load(r io.Reader, name string) (*PaymentLoadResult, error) {
	reader := newCSVReader(r, f.config.Delimiter)

	columns, err := readColumns(reader, f.config.FeedConfig, name, []string{
		f.config.TransactionIDColumn,
		f.config.AmountColumn,
		f.config.CurrencyColumn,
		f.config.DateColumn,
	})
	if err != nil {
		return nil, err
	}

	result := &PaymentLoadResult{}
	line := 1

	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Rejected++
			result.Reasons = append(result.Reasons, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if isBlankRow(row) {
			continue
		}

		record, err := models.CreatePaymentRecordFromCSV(
			columns.value(row, f.config.TransactionIDColumn),
			columns.value(row, f.config.OrderIDColumn),
			columns.value(row, f.config.AmountColumn),
			columns.value(row, f.config.CurrencyColumn),
			columns.value(row, f.config.StatusColumn),
			columns.value(row, f.config.DateColumn),
		)
		if err != nil {
			result.Rejected++
			result.Reasons = append(result.Reasons, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		result.Records = append(result.Records, record)
		result.Accepted++
	}

	f.log.WithFields(logger.Fields{
		"feed":     name,
		"accepted": result.Accepted,
		"rejected": result.Rejected,
	}).Info("payment feed loaded")

	return result, nil
}

// ExternalFeed loads external records from CSV
type ExternalFeed struct {
	config *ExternalFeedConfig
	log    logger.Logger
}

// NewExternalFeed creates an external feed, falling back to the default
// layout when config is nil.
func NewExternalFeed(config *ExternalFeedConfig) *ExternalFeed {
	if config == nil {
		config = DefaultExternalFeedConfig()
	}
	return &ExternalFeed{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("external_feed"),
	}
}

// LoadFile loads external records from the file at path
func (f *ExternalFeed) LoadFile(path string) (*ExternalLoadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FeedError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FeedError(errors.CodeInvalidFormat, path, err)
	}
	defer file.Close()

	return f.Load(file, path)
}

// Load loads external records from r; name is used in error reporting
func (f *ExternalFeed) Load(r io.Reader, name string) (*ExternalLoadResult, error) {
	reader := newCSVReader(r, f.config.Delimiter)

	columns, err := readColumns(reader, f.config.FeedConfig, name, []string{
		f.config.ReferenceIDColumn,
		f.config.AmountColumn,
		f.config.CurrencyColumn,
		f.config.DateColumn,
	})
	if err != nil {
		return nil, err
	}

	result := &ExternalLoadResult{}
	line := 1

	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Rejected++
			result.Reasons = append(result.Reasons, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if isBlankRow(row) {
			continue
		}

		record, err := models.CreateExternalRecordFromCSV(
			columns.value(row, f.config.ReferenceIDColumn),
			columns.value(row, f.config.AmountColumn),
			columns.value(row, f.config.CurrencyColumn),
			columns.value(row, f.config.DescriptionColumn),
			columns.value(row, f.config.DateColumn),
			columns.value(row, f.config.SourceColumn),
		)
		if err != nil {
			result.Rejected++
			result.Reasons = append(result.Reasons, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		result.Records = append(result.Records, record)
		result.Accepted++
	}

	f.log.WithFields(logger.Fields{
		"feed":     name,
		"accepted": result.Accepted,
		"rejected": result.Rejected,
	}).Info("external feed loaded")

	return result, nil
}

// columnMap resolves configured column names (and their aliases) to indexes
type columnMap struct {
	indexes map[string]int
}

// value returns the row value for a configured column, or "" when the column
// is absent. Missing optional columns simply contribute empty fields.
func (c *columnMap) value(row []string, column string) string {
	idx, ok := c.indexes[strings.ToLower(column)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func newCSVReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader
}

// readColumns consumes the header row (or synthesizes positional columns
// when the feed has none) and verifies the required columns are present.
func readColumns(reader *csv.Reader, config FeedConfig, name string, required []string) (*columnMap, error) {
	columns := &columnMap{indexes: make(map[string]int)}

	if !config.HasHeader {
		// Positional layout: required columns in configured order
		for i, column := range required {
			columns.indexes[strings.ToLower(column)] = i
		}
		return columns, nil
	}

	header, err := reader.Read()
	if err != nil {
		return nil, errors.FeedError(errors.CodeInvalidFormat, name, err)
	}

	for i, raw := range header {
		column := strings.ToLower(strings.TrimSpace(raw))
		if canonical, ok := config.ColumnAliases[column]; ok {
			column = strings.ToLower(canonical)
		}
		columns.indexes[column] = i
	}

	for _, column := range required {
		if _, ok := columns.indexes[strings.ToLower(column)]; !ok {
			return nil, errors.FeedError(errors.CodeMissingColumn, name, nil).
				WithContext("column", column)
		}
	}

	return columns, nil
}

func isBlankRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
