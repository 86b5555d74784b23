package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/quantrail/reckon/internal/models"
	"github.com/quantrail/reckon/pkg/ingest"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Input column names, matched exactly and case-sensitively.
const (
	ColAsofDate         = "AsofDate"
	ColCompany          = "Company"
	ColAccount          = "Account"
	ColAccountingUnit   = "AU"
	ColCurrency         = "Currency"
	ColPrimaryAccount   = "Primary Account"
	ColSecondaryAccount = "Secondary Account"
	ColGLBalance        = "GL Balance"
	ColIHUBBalance      = "IHUB Balance"
)

// RequiredColumns is the full set a raw batch must carry.
var RequiredColumns = []string{
	ColAsofDate, ColCompany, ColAccount, ColAccountingUnit, ColCurrency,
	ColPrimaryAccount, ColSecondaryAccount, ColGLBalance, ColIHUBBalance,
}

var nonNumericChars = regexp.MustCompile(`[^0-9.\-]`)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// NormalizerService validates and cleans raw batch rows into typed records.
type NormalizerService struct {
	logger *zap.Logger
}

func NewNormalizerService(logger *zap.Logger) *NormalizerService {
	return &NormalizerService{logger: logger}
}

// NormalizeResult is the surviving record set plus the number of rows dropped
// for missing critical values.
type NormalizeResult struct {
	Records []*models.ReconRecord
	Dropped int
}

// Normalize enforces the required columns, coerces every row and drops rows
// whose as-of date or balances cannot be parsed. Bad cells degrade to null
// and are never an error; a missing column is a *SchemaError.
func (s *NormalizerService) Normalize(batch *ingest.RawBatch) (*NormalizeResult, error) {
	if missing := missingColumns(batch.Columns); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	result := &NormalizeResult{
		Records: make([]*models.ReconRecord, 0, len(batch.Rows)),
	}

	for i, row := range batch.Rows {
		asof, ok := parseDate(row[ColAsofDate])
		if !ok {
			result.Dropped++
			continue
		}
		gl, ok := parseAmount(row[ColGLBalance])
		if !ok {
			result.Dropped++
			continue
		}
		ihub, ok := parseAmount(row[ColIHUBBalance])
		if !ok {
			result.Dropped++
			continue
		}

		result.Records = append(result.Records, &models.ReconRecord{
			RowIndex:         i,
			Company:          strings.TrimSpace(row[ColCompany]),
			Account:          strings.TrimSpace(row[ColAccount]),
			AccountingUnit:   strings.TrimSpace(row[ColAccountingUnit]),
			Currency:         strings.TrimSpace(row[ColCurrency]),
			PrimaryAccount:   strings.TrimSpace(row[ColPrimaryAccount]),
			SecondaryAccount: strings.TrimSpace(row[ColSecondaryAccount]),
			AsofDate:         asof,
			GLBalance:        gl.Round(2),
			IHUBBalance:      ihub.Round(2),
		})
	}

	if result.Dropped > 0 {
		s.logger.Warn("dropped rows with unparsable critical values",
			zap.String("source", batch.Source),
			zap.Int("dropped", result.Dropped),
			zap.Int("survived", len(result.Records)))
	}

	return result, nil
}

func missingColumns(columns []string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		present[name] = struct{}{}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// parseAmount strips everything outside [0-9.-] and parses the remainder as a
// decimal. Thousands separators and currency symbols survive this; anything
// else becomes null.
func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := nonNumericChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
