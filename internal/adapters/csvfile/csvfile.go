// Package csvfile persists enriched bank records as a header-first CSV file.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/okian/bankrank/internal/domain/model"
)

const fileMode = 0o644

// Write replaces path with a CSV holding model.Columns() as header and one
// row per record, in input order. Numbers use the shortest decimal form.
// The file is written to a sibling temp file and renamed into place, so a
// failed write leaves any previous file untouched.
func Write(path string, records []model.EnrichedBankRecord) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(model.Columns()); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	for _, r := range records {
		if err = w.Write(row(r)); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = tmp.Chmod(fileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Read loads a file produced by Write.
func Read(path string) ([]model.EnrichedBankRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if len(rows) == 0 || !slices.Equal(rows[0], model.Columns()) {
		return nil, fmt.Errorf("%w: unexpected header", ErrRead)
	}

	out := make([]model.EnrichedBankRecord, 0, len(rows)-1)
	for i, rec := range rows[1:] {
		var nums [4]float64
		for j := range nums {
			nums[j], err = strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrRead, i+2, err)
			}
		}
		out = append(out, model.EnrichedBankRecord{
			BankRecord:          model.BankRecord{Name: rec[0], MarketCapUSDBillion: nums[0]},
			MarketCapGBPBillion: nums[1],
			MarketCapEURBillion: nums[2],
			MarketCapINRBillion: nums[3],
		})
	}
	return out, nil
}

func row(r model.EnrichedBankRecord) []string {
	return []string{
		r.Name,
		formatFloat(r.MarketCapUSDBillion),
		formatFloat(r.MarketCapGBPBillion),
		formatFloat(r.MarketCapEURBillion),
		formatFloat(r.MarketCapINRBillion),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
