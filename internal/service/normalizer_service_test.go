package service

import (
	"errors"
	"testing"

	"github.com/quantrail/reckon/pkg/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fullRow(overrides map[string]string) map[string]string {
	row := map[string]string{
		ColAsofDate:         "2024-01-31",
		ColCompany:          "Co1",
		ColAccount:          "Acc1",
		ColAccountingUnit:   "AU1",
		ColCurrency:         "USD",
		ColPrimaryAccount:   "PA1",
		ColSecondaryAccount: "SA1",
		ColGLBalance:        "100.00",
		ColIHUBBalance:      "100.00",
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func TestNormalizerService_Normalize(t *testing.T) {
	svc := NewNormalizerService(zap.NewNop())

	t.Run("missing columns produce a schema error", func(t *testing.T) {
		batch := &ingest.RawBatch{
			Source:  "test.csv",
			Columns: []string{ColAsofDate, ColCompany, ColAccount},
			Rows:    []map[string]string{fullRow(nil)},
		}

		result, err := svc.Normalize(batch)
		require.Error(t, err)
		assert.Nil(t, result)

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Contains(t, schemaErr.Missing, ColGLBalance)
		assert.Contains(t, schemaErr.Missing, ColIHUBBalance)
		assert.NotContains(t, schemaErr.Missing, ColCompany)
	})

	t.Run("clean rows are coerced and trimmed", func(t *testing.T) {
		batch := &ingest.RawBatch{
			Source:  "test.csv",
			Columns: RequiredColumns,
			Rows: []map[string]string{
				fullRow(map[string]string{
					ColCompany:     "  Co1  ",
					ColGLBalance:   "$1,234.567",
					ColIHUBBalance: "-200",
				}),
			},
		}

		result, err := svc.Normalize(batch)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, 0, result.Dropped)

		r := result.Records[0]
		assert.Equal(t, "Co1", r.Company)
		assert.Equal(t, "1234.57", r.GLBalance.String())
		assert.Equal(t, "-200", r.IHUBBalance.String())
		assert.Equal(t, 2024, r.AsofDate.Year())
	})

	t.Run("rows with unparsable critical values are dropped not fatal", func(t *testing.T) {
		batch := &ingest.RawBatch{
			Source:  "test.csv",
			Columns: RequiredColumns,
			Rows: []map[string]string{
				fullRow(nil),
				fullRow(map[string]string{ColAsofDate: "not-a-date"}),
				fullRow(map[string]string{ColGLBalance: ""}),
				fullRow(map[string]string{ColIHUBBalance: "n/a"}),
			},
		}

		result, err := svc.Normalize(batch)
		require.NoError(t, err)
		assert.Len(t, result.Records, 1)
		assert.Equal(t, 3, result.Dropped)
	})

	t.Run("row index follows original input order", func(t *testing.T) {
		batch := &ingest.RawBatch{
			Source:  "test.csv",
			Columns: RequiredColumns,
			Rows: []map[string]string{
				fullRow(map[string]string{ColAsofDate: "bad"}),
				fullRow(nil),
				fullRow(nil),
			},
		}

		result, err := svc.Normalize(batch)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)
		assert.Equal(t, 1, result.Records[0].RowIndex)
		assert.Equal(t, 2, result.Records[1].RowIndex)
	})

	t.Run("multiple date formats are accepted", func(t *testing.T) {
		batch := &ingest.RawBatch{
			Source:  "test.csv",
			Columns: RequiredColumns,
			Rows: []map[string]string{
				fullRow(map[string]string{ColAsofDate: "2024/01/31"}),
				fullRow(map[string]string{ColAsofDate: "01/31/2024"}),
				fullRow(map[string]string{ColAsofDate: "2024-01-31 10:30:00"}),
			},
		}

		result, err := svc.Normalize(batch)
		require.NoError(t, err)
		require.Len(t, result.Records, 3)
		for _, r := range result.Records {
			assert.Equal(t, 2024, r.AsofDate.Year())
			assert.Equal(t, 31, r.AsofDate.Day())
		}
	})
}
