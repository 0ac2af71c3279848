// Package service runs the largest-banks pipeline: extract, transform, load
// to CSV and SQLite, then the configured queries.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bankrank/internal/adapters/csvfile"
	"github.com/okian/bankrank/internal/adapters/fetch"
	"github.com/okian/bankrank/internal/adapters/htmltable"
	"github.com/okian/bankrank/internal/adapters/progress"
	"github.com/okian/bankrank/internal/adapters/repository"
	"github.com/okian/bankrank/internal/config"
	"github.com/okian/bankrank/internal/domain/conversion"
	"github.com/okian/bankrank/internal/domain/model"
	"github.com/okian/bankrank/pkg/logger"
	"github.com/okian/bankrank/pkg/metrics"
)

// Progress log messages, in the order a successful run writes them.
const (
	MsgPreliminaries = "Preliminaries complete. Initiating ETL process"
	MsgExtracted     = "Data extraction complete. Initiating Transformation process"
	MsgTransformed   = "Data transformation complete. Initiating Loading process"
	MsgCSVSaved      = "Data saved to CSV file"
	MsgConnected     = "SQL Connection initiated"
	MsgLoaded        = "Data loaded to Database as a table, Executing queries"
	MsgClosed        = "Server Connection closed"
	MsgQueryPrefix   = "Executed query: "
	MsgComplete      = "Process Complete"
)

// Stage names used in logs, metrics and failure entries.
const (
	StagePreliminaries = "preliminaries"
	StageExtract       = "extract"
	StageTransform     = "transform"
	StageCSV           = "csv"
	StageLoad          = "load"
	StageQuery         = "query"
	StageComplete      = "complete"
)

// Fetch sources, used as the fetch_bytes_total label.
const (
	sourcePage  = "page"
	sourceRates = "rates"
)

var (
	footnotePattern = regexp.MustCompile(`\[[^\]]*\]`)

	checkpointMessages = map[repository.Checkpoint]string{
		repository.CheckpointConnected: MsgConnected,
		repository.CheckpointLoaded:    MsgLoaded,
		repository.CheckpointClosed:    MsgClosed,
	}
)

// Fetcher returns the raw document at a URL or path.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Progress is the operator-facing checkpoint log.
type Progress interface {
	Record(ctx context.Context, message string) error
	Failure(ctx context.Context, message string, err error) error
}

// StoreFactory builds a store for a database location.
type StoreFactory func(location string, opts ...repository.Option) repository.Store

type step struct {
	name string
	fn   func(context.Context) error
}

// Service owns one pipeline configuration and its collaborators.
type Service struct {
	cfg      *config.Config
	fetcher  Fetcher
	progress Progress
	newStore StoreFactory
	out      io.Writer
	logger   logger.Logger
	now      func() time.Time
}

// New constructs a Service for cfg; a nil cfg means config.New().
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg: cfg,
		fetcher: fetch.New(
			fetch.WithTimeout(cfg.FetchTimeout()),
			fetch.WithUserAgent(cfg.UserAgent),
		),
		progress: progress.New(cfg.ProgressLogPath),
		newStore: func(location string, opts ...repository.Option) repository.Store {
			return repository.NewSQLiteStore(location, opts...)
		},
		out: os.Stdout,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}
	return s
}

// Extract fetches sourceURL and returns the first RecordLimit rows of its
// first table, projected onto the configured name and market-cap columns.
func (s *Service) Extract(ctx context.Context, sourceURL string) ([]model.BankRecord, error) {
	body, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	metrics.RecordFetchBytes(sourcePage, len(body))

	tbl, err := htmltable.FirstTable(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	rows, err := tbl.Project(s.cfg.NameColumn, s.cfg.MarketCapColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	if len(rows) > s.cfg.RecordLimit {
		rows = rows[:s.cfg.RecordLimit]
	}

	records := make([]model.BankRecord, 0, len(rows))
	for i, row := range rows {
		name := stripFootnotes(row[0])
		if name == "" {
			return nil, fmt.Errorf("%w: row %d: empty bank name", ErrMalformedSource, i+1)
		}
		usd, err := parseMarketCap(row[1])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d (%s): %w", ErrMalformedSource, i+1, name, err)
		}
		records = append(records, model.BankRecord{Name: name, MarketCapUSDBillion: usd})
	}

	if len(records) < s.cfg.RecordLimit {
		s.logger.Warn(ctx, "source table has fewer rows than the limit",
			logger.Int("rows", len(records)),
			logger.Int("limit", s.cfg.RecordLimit),
		)
	}
	metrics.UpdateRecordsExtracted(len(records))

	if err := s.record(ctx, MsgExtracted); err != nil {
		return nil, err
	}
	return records, nil
}

// Transform fetches the rate table and returns records enriched with GBP,
// EUR and INR values. records is not modified.
func (s *Service) Transform(ctx context.Context, records []model.BankRecord, rateSourceURL string) ([]model.EnrichedBankRecord, error) {
	body, err := s.fetcher.Fetch(ctx, rateSourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateSourceUnavailable, err)
	}
	metrics.RecordFetchBytes(sourceRates, len(body))

	rates, err := conversion.ParseRates(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateSourceUnavailable, err)
	}

	enriched, err := conversion.Enrich(records, rates)
	if err != nil {
		if errors.Is(err, conversion.ErrMissingCurrency) {
			return nil, fmt.Errorf("%w: %w", ErrMissingCurrency, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrRateSourceUnavailable, err)
	}
	for _, c := range model.TargetCurrencies {
		metrics.UpdateExchangeRate(c, rates[c])
	}

	if err := s.record(ctx, MsgTransformed); err != nil {
		return nil, err
	}
	return enriched, nil
}

// WriteCSV replaces the file at path with records.
func (s *Service) WriteCSV(ctx context.Context, records []model.EnrichedBankRecord, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := csvfile.Write(path, records); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	s.logger.Debug(ctx, "csv written", logger.String("path", path), logger.Int("rows", len(records)))
	return s.record(ctx, MsgCSVSaved)
}

// LoadToStore replaces tableName in the database at storeLocation with
// records. The connection is closed before returning, and the closing
// checkpoint is logged on failure as well.
func (s *Service) LoadToStore(ctx context.Context, records []model.EnrichedBankRecord, storeLocation, tableName string) error {
	var progressErr error
	checkpoint := func(ctx context.Context, c repository.Checkpoint) {
		msg, ok := checkpointMessages[c]
		if !ok {
			return
		}
		if c == repository.CheckpointClosed {
			ctx = context.WithoutCancel(ctx)
		}
		if err := s.record(ctx, msg); err != nil && progressErr == nil {
			progressErr = err
		}
	}

	store := s.newStore(storeLocation,
		repository.WithCheckpoint(checkpoint),
		repository.WithLogger(s.logger.Named("repository")),
	)
	if err := store.Replace(ctx, tableName, records); err != nil {
		if errors.Is(err, repository.ErrOpen) {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if progressErr != nil {
		return progressErr
	}

	metrics.UpdateRecordsLoaded(len(records))
	return nil
}

// RunQuery executes statement against the database at storeLocation,
// prints the statement and every row to the configured output, and
// returns the rows.
func (s *Service) RunQuery(ctx context.Context, statement, storeLocation string) (repository.Result, error) {
	store := s.newStore(storeLocation, repository.WithLogger(s.logger.Named("repository")))
	res, err := store.Query(ctx, statement)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	if err := printResult(s.out, res); err != nil {
		return res, fmt.Errorf("%w: print: %w", ErrWrite, err)
	}
	metrics.RecordQuery(len(res.Rows))

	if err := s.record(ctx, MsgQueryPrefix+statement); err != nil {
		return res, err
	}
	return res, nil
}

// Run executes the whole pipeline once. The first failing stage stops the
// run; it is recorded in the progress log and returned.
func (s *Service) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID))
	start := s.now()
	log.Info(ctx, "pipeline starting",
		logger.String("source", s.cfg.SourceURL),
		logger.String("db", s.cfg.DBPath),
		logger.String("table", s.cfg.TableName),
	)
	defer s.exportMetrics(ctx, log)

	var (
		records  []model.BankRecord
		enriched []model.EnrichedBankRecord
	)
	stages := []step{
		{StagePreliminaries, func(ctx context.Context) error {
			return s.record(ctx, MsgPreliminaries)
		}},
		{StageExtract, func(ctx context.Context) (err error) {
			records, err = s.Extract(ctx, s.cfg.SourceURL)
			return err
		}},
		{StageTransform, func(ctx context.Context) (err error) {
			enriched, err = s.Transform(ctx, records, s.cfg.RateSourceURL)
			return err
		}},
		{StageCSV, func(ctx context.Context) error {
			return s.WriteCSV(ctx, enriched, s.cfg.CSVPath)
		}},
		{StageLoad, func(ctx context.Context) error {
			return s.LoadToStore(ctx, enriched, s.cfg.DBPath, s.cfg.TableName)
		}},
	}
	for _, q := range s.cfg.Queries {
		q := q // per-iteration copy; go.mod targets go1.21 loop semantics
		stages = append(stages, step{StageQuery, func(ctx context.Context) error {
			_, err := s.RunQuery(ctx, q, s.cfg.DBPath)
			return err
		}})
	}
	stages = append(stages, step{StageComplete, func(ctx context.Context) error {
		return s.record(ctx, MsgComplete)
	}})

	for _, st := range stages {
		if err := s.stage(ctx, log, st.name, st.fn); err != nil {
			return err
		}
	}

	metrics.MarkSuccess(s.now())
	log.Info(ctx, "pipeline complete",
		logger.Int("records", len(enriched)),
		logger.Duration("elapsed", s.now().Sub(start)),
	)
	return nil
}

func (s *Service) stage(ctx context.Context, log logger.Logger, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.RecordStageDuration(name, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return s.fail(ctx, log, name, err)
	}
	log.Debug(ctx, "stage complete", logger.String("stage", name))
	return nil
}

// fail records err against stage in metrics, logs and the progress log.
func (s *Service) fail(ctx context.Context, log logger.Logger, stage string, err error) error {
	ctx = context.WithoutCancel(ctx)
	kind := ErrorKind(err)
	metrics.RecordStageError(stage, kind)
	log.Error(ctx, "stage failed",
		logger.String("stage", stage),
		logger.String("kind", kind),
		logger.Error(err),
	)
	if perr := s.progress.Failure(ctx, stage+" failed", err); perr != nil {
		log.Warn(ctx, "progress log append failed", logger.Error(perr))
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func (s *Service) exportMetrics(ctx context.Context, log logger.Logger) {
	if s.cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(s.cfg.MetricsTextfile); err != nil {
		log.Warn(context.WithoutCancel(ctx), "metrics textfile not written", logger.Error(err))
	}
}

func (s *Service) record(ctx context.Context, msg string) error {
	if err := s.progress.Record(ctx, msg); err != nil {
		return fmt.Errorf("%w: progress log: %w", ErrWrite, err)
	}
	return nil
}

func stripFootnotes(s string) string {
	return htmltable.Normalize(footnotePattern.ReplaceAllString(s, ""))
}

// parseMarketCap reads "1,234.5[a]" as 1234.5.
func parseMarketCap(raw string) (float64, error) {
	clean := strings.ReplaceAll(stripFootnotes(raw), ",", "")
	if clean == "" {
		return 0, errors.New("empty market cap")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("market cap %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("market cap %q is not finite", raw)
	}
	return v, nil
}
