// Package model contains domain models passed between layers.
package model

// Currency codes the pipeline converts into.
const (
	GBP = "GBP"
	EUR = "EUR"
	INR = "INR"
)

// TargetCurrencies lists the derived columns in output order.
var TargetCurrencies = []string{GBP, EUR, INR}

// Column names shared by the CSV file and the relational table.
const (
	ColumnName         = "Name"
	ColumnMarketCapUSD = "MC_USD_Billion"
	ColumnMarketCapGBP = "MC_GBP_Billion"
	ColumnMarketCapEUR = "MC_EUR_Billion"
	ColumnMarketCapINR = "MC_INR_Billion"
)

// Columns returns the output columns in order.
func Columns() []string {
	return []string{ColumnName, ColumnMarketCapUSD, ColumnMarketCapGBP, ColumnMarketCapEUR, ColumnMarketCapINR}
}

// BankRecord is one extracted row: a bank and its market cap in USD billions.
type BankRecord struct {
	Name                string
	MarketCapUSDBillion float64
}

// EnrichedBankRecord adds the converted market caps, each rounded to 2 places.
type EnrichedBankRecord struct {
	BankRecord
	MarketCapGBPBillion float64
	MarketCapEURBillion float64
	MarketCapINRBillion float64
}

// ExchangeRate is the number of units of Currency per 1 USD.
type ExchangeRate struct {
	Currency string
	Rate     float64
}

// Rates maps a currency code to its rate against USD.
type Rates map[string]float64

// NewRates builds a lookup from table; a repeated currency keeps its last rate.
func NewRates(table []ExchangeRate) Rates {
	r := make(Rates, len(table))
	for _, er := range table {
		r[er.Currency] = er.Rate
	}
	return r
}
