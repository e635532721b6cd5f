// Package replay runs a configured backtest over a historical bar file:
// bars stream through the engine, drained signals drive the futures
// simulator, and the outcome lands in a report directory.
package replay

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/streamquant/internal/backtest"
	"github.com/rxtech-lab/streamquant/internal/datasource"
	"github.com/rxtech-lab/streamquant/internal/engine"
	"github.com/rxtech-lab/streamquant/internal/logger"
	"github.com/rxtech-lab/streamquant/internal/report"
	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// Options locates the inputs and outputs of one replay run.
type Options struct {
	ConfigPath   string
	DataPath     string
	OutputDir    string
	ShowProgress bool
}

// Run replays the data file through a freshly configured engine and returns
// the run summary. The report directory receives the signal and equity
// Parquet exports plus a summary.json.
func Run(opts Options, log *logger.Logger) (*report.Summary, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	config, err := backtest.LoadRunConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(config.Capacity, log)
	if err != nil {
		return nil, err
	}

	for _, s := range config.Strategies {
		if _, err := eng.AddStrategy(s.Name, s.Script); err != nil {
			return nil, err
		}
	}

	simulator, err := backtest.NewFuturesBacktest(config.Backtest)
	if err != nil {
		return nil, err
	}

	source, err := datasource.NewBarSource(log)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	if err := source.Initialize(opts.DataPath); err != nil {
		return nil, err
	}

	writer, err := report.NewWriter(log)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	count, err := source.Count(config.StartTime, config.EndTime)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptyStore, "no bars in %s within the configured time range", opts.DataPath)
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(count), "replaying bars")
	}

	var lastClose float64
	var lastTimestamp int64

	err = source.Iterate(config.StartTime, config.EndTime, func(b types.Bar) error {
		eng.Push(b)
		lastClose = b.Close
		lastTimestamp = b.Timestamp

		for _, signal := range eng.Signals().PollAll() {
			if err := writer.RecordSignal(signal, b.Close); err != nil {
				return err
			}
			if err := simulator.ApplySignal(signal.Action, b.Close, config.MarginPerTrade); err != nil {
				return err
			}
		}

		if err := simulator.OnPrice(b.Close); err != nil {
			return err
		}

		result, err := simulator.Result(b.Close)
		if err != nil {
			return err
		}
		if err := writer.RecordEquity(b.Timestamp, b.Close, result); err != nil {
			return err
		}

		if bar != nil {
			_ = bar.Add(1)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := simulator.Result(lastClose)
	if err != nil {
		return nil, err
	}

	summary := writer.Summarize(result)
	if err := writer.Write(opts.OutputDir); err != nil {
		return nil, err
	}
	if err := writeSummary(opts.OutputDir, summary); err != nil {
		return nil, err
	}

	log.Info("replay finished",
		zap.String("run_id", summary.RunID),
		zap.Int("bars", count),
		zap.Int("signals", summary.Signals),
		zap.Int64("last_timestamp", lastTimestamp),
		zap.Float64("equity", summary.Equity),
		zap.Float64("profit_rate", summary.ProfitRate),
		zap.Bool("liquidated", summary.Liquidated),
	)

	return &summary, nil
}

func writeSummary(dir string, summary report.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to encode summary", err)
	}

	path := filepath.Join(dir, "summary.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeReportWrite, "failed to write summary", err)
	}

	return nil
}
