// Package conversion turns USD market caps into other currencies using a rate table.
package conversion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/bankrank/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places kept in converted values.
const Places = 2

// Rate table header names, matched case-insensitively.
const (
	currencyHeader = "currency"
	rateHeader     = "rate"
)

// ParseRates reads a CSV rate table into a lookup. When a code repeats,
// the last row wins.
func ParseRates(r io.Reader) (model.Rates, error) {
	table, err := ReadRateTable(r)
	if err != nil {
		return nil, err
	}
	return model.NewRates(table), nil
}

// ReadRateTable reads a CSV rate table with a Currency and a Rate column,
// keeping every row in file order. Extra columns (an index column, for
// instance) are ignored and codes are upper-cased.
func ReadRateTable(r io.Reader) ([]model.ExchangeRate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty rate table", ErrMalformedRates)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRates, err)
	}

	curIdx, rateIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case currencyHeader:
			curIdx = i
		case rateHeader:
			rateIdx = i
		}
	}
	if curIdx < 0 || rateIdx < 0 {
		return nil, fmt.Errorf("%w: header %q lacks Currency and Rate columns", ErrMalformedRates, header)
	}

	var table []model.ExchangeRate
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRates, err)
		}
		if curIdx >= len(rec) || rateIdx >= len(rec) {
			return nil, fmt.Errorf("%w: line %d: missing fields", ErrMalformedRates, line)
		}

		code := strings.ToUpper(strings.TrimSpace(rec[curIdx]))
		if code == "" {
			return nil, fmt.Errorf("%w: line %d: empty currency code", ErrMalformedRates, line)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(rec[rateIdx]), 64)
		if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
			return nil, fmt.Errorf("%w: line %d: invalid rate %q for %s", ErrMalformedRates, line, rec[rateIdx], code)
		}
		table = append(table, model.ExchangeRate{Currency: code, Rate: rate})
	}
	return table, nil
}

// Require reports ErrMissingCurrency naming every code absent from rates.
func Require(rates model.Rates, codes ...string) error {
	var missing []string
	for _, c := range codes {
		if _, ok := rates[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingCurrency, strings.Join(missing, ", "))
}

// Convert returns usd * rate rounded to Places decimal places, half away
// from zero. Both operands are taken at their shortest decimal form, so
// 1.005 * 1 yields 1.01 rather than the 1.00 that binary floats would give.
func Convert(usd, rate float64) float64 {
	return decimal.NewFromFloat(usd).
		Mul(decimal.NewFromFloat(rate)).
		Round(Places).
		InexactFloat64()
}

// Enrich converts every record into GBP, EUR and INR. It returns a new
// slice in input order and leaves records untouched.
func Enrich(records []model.BankRecord, rates model.Rates) ([]model.EnrichedBankRecord, error) {
	if err := Require(rates, model.TargetCurrencies...); err != nil {
		return nil, err
	}

	gbp, eur, inr := rates[model.GBP], rates[model.EUR], rates[model.INR]
	out := make([]model.EnrichedBankRecord, len(records))
	for i, r := range records {
		out[i] = model.EnrichedBankRecord{
			BankRecord:          r,
			MarketCapGBPBillion: Convert(r.MarketCapUSDBillion, gbp),
			MarketCapEURBillion: Convert(r.MarketCapUSDBillion, eur),
			MarketCapINRBillion: Convert(r.MarketCapUSDBillion, inr),
		}
	}
	return out, nil
}
