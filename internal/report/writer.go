// Package report records backtest activity in DuckDB and exports it as
// Parquet files next to a rounded run summary.
package report

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/streamquant/internal/backtest"
	"github.com/rxtech-lab/streamquant/internal/logger"
	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// summaryPrecision is the number of decimal places kept in summary figures.
const summaryPrecision = 6

// Summary is the rounded end-of-run outcome.
type Summary struct {
	RunID           string  `json:"run_id"`
	Signals         int     `json:"signals"`
	Equity          float64 `json:"equity"`
	Profit          float64 `json:"profit"`
	ProfitRate      float64 `json:"profit_rate"`
	MaxDrawdownRate float64 `json:"max_drawdown_rate"`
	Liquidated      bool    `json:"liquidated"`
}

// Writer records signals and the equity curve of one backtest run in an
// in-memory DuckDB database and exports them on demand.
type Writer struct {
	db      *sql.DB
	logger  *logger.Logger
	sq      squirrel.StatementBuilderType
	runID   uuid.UUID
	signals int
}

// NewWriter creates a writer backed by an in-memory DuckDB database.
func NewWriter(log *logger.Logger) (*Writer, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportWrite, "failed to open report database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeReportWrite, "failed to connect to report database", err)
	}

	w := &Writer{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		runID:  uuid.New(),
	}

	if err := w.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return w, nil
}

func (w *Writer) initialize() error {
	_, err := w.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			strategy_id INTEGER,
			action TEXT,
			timestamp BIGINT,
			price DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to create signals table", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity_curve (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			timestamp BIGINT,
			price DOUBLE,
			equity DOUBLE,
			drawdown DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to create equity_curve table", err)
	}

	return nil
}

// RunID returns this run's identifier.
func (w *Writer) RunID() string {
	return w.runID.String()
}

// RecordSignal stores one emitted signal and the price it was applied at.
func (w *Writer) RecordSignal(signal types.Signal, price float64) error {
	_, err := w.sq.
		Insert("signals").
		Columns("id", "run_id", "strategy_id", "action", "timestamp", "price").
		Values(uuid.NewString(), w.runID.String(), signal.StrategyID, string(signal.Action), signal.Timestamp, price).
		RunWith(w.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to insert signal", err)
	}

	w.signals++

	return nil
}

// RecordEquity stores one equity-curve point.
func (w *Writer) RecordEquity(timestamp int64, price float64, result backtest.Result) error {
	_, err := w.sq.
		Insert("equity_curve").
		Columns("id", "run_id", "timestamp", "price", "equity", "drawdown").
		Values(uuid.NewString(), w.runID.String(), timestamp, price, result.Equity, result.MaxDrawdownRate).
		RunWith(w.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to insert equity point", err)
	}

	return nil
}

// SignalCount returns the number of signals recorded so far.
func (w *Writer) SignalCount() int {
	return w.signals
}

func round(v float64) float64 {
	rounded, _ := decimal.NewFromFloat(v).Round(summaryPrecision).Float64()

	return rounded
}

// Summarize turns a final backtest result into a rounded summary.
func (w *Writer) Summarize(result backtest.Result) Summary {
	return Summary{
		RunID:           w.runID.String(),
		Signals:         w.signals,
		Equity:          round(result.Equity),
		Profit:          round(result.Profit),
		ProfitRate:      round(result.ProfitRate),
		MaxDrawdownRate: round(result.MaxDrawdownRate),
		Liquidated:      result.Liquidated,
	}
}

// Write exports the recorded tables as Parquet files under the given
// directory, creating it if needed.
func (w *Writer) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to create report directory", err)
	}

	signalsPath := filepath.Join(path, "signals.parquet")
	if _, err := w.db.Exec(fmt.Sprintf(`COPY signals TO '%s' (FORMAT PARQUET)`, signalsPath)); err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to export signals", err)
	}

	equityPath := filepath.Join(path, "equity_curve.parquet")
	if _, err := w.db.Exec(fmt.Sprintf(`COPY equity_curve TO '%s' (FORMAT PARQUET)`, equityPath)); err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to export equity curve", err)
	}

	w.logger.Info("report written",
		zap.String("run_id", w.runID.String()),
		zap.String("signals", signalsPath),
		zap.String("equity_curve", equityPath),
	)

	return nil
}

// Close closes the underlying database.
func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}

	return w.db.Close()
}
