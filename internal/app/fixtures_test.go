package service_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	service "github.com/okian/bankrank/internal/app"
	"github.com/okian/bankrank/internal/config"
	"github.com/okian/bankrank/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	color.NoColor = true
}

const ratesCSV = "Currency,Rate\nEUR,0.93\nGBP,0.8\nINR,82.95\n"

// banksPage renders a largest-banks style table with n rows. Row i has
// market cap 500-10*i and a footnote on the first row.
func banksPage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><h2>By market capitalization</h2><table class="wikitable">
<tbody><tr><th>Rank</th><th>Bank name</th><th>Market cap<br>(US$ billion)</th></tr>`)
	for i := 0; i < n; i++ {
		mc := fmt.Sprintf("%d.5", 500-10*i)
		if i == 0 {
			mc = "1,500.5[1]"
		}
		fmt.Fprintf(&b, "<tr><td>%d</td><td><a href=\"#\">Bank %d</a></td><td>%s\n</td></tr>", i+1, i+1, mc)
	}
	b.WriteString(`</tbody></table><table><tr><th>Other</th></tr><tr><td>x</td></tr></table></body></html>`)
	return b.String()
}

// sources serves the page at /banks and the rate table at /rates.
func sources(t *testing.T, page, rates string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/banks", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page)
	})
	mux.HandleFunc("/rates", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, rates)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// testConfig points every output at dir and every source at srv.
func testConfig(dir string, srv *httptest.Server) *config.Config {
	cfg := config.New()
	cfg.SourceURL = srv.URL + "/banks"
	cfg.RateSourceURL = srv.URL + "/rates"
	cfg.CSVPath = filepath.Join(dir, "Largest_banks_data.csv")
	cfg.DBPath = filepath.Join(dir, "Banks.db")
	cfg.ProgressLogPath = filepath.Join(dir, "code_log.txt")
	cfg.FetchTimeoutMS = 5_000
	return cfg
}

// progressMessages returns the message part of every progress log line.
func progressMessages(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if parts := strings.SplitN(line, " : ", 2); len(parts) == 2 {
			out = append(out, parts[1])
		}
	}
	return out
}

type stubFetcher map[string]struct {
	body []byte
	err  error
}

func (f stubFetcher) Fetch(_ context.Context, location string) ([]byte, error) {
	r, ok := f[location]
	if !ok {
		return nil, fmt.Errorf("no stub for %s", location)
	}
	return r.body, r.err
}

var _ service.Fetcher = stubFetcher{}
