package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/streamquant/internal/backtest"
	"github.com/rxtech-lab/streamquant/internal/engine"
	"github.com/rxtech-lab/streamquant/internal/feed"
	"github.com/rxtech-lab/streamquant/internal/logger"
	"github.com/rxtech-lab/streamquant/internal/replay"
)

// backtestAction replays a historical bar file through the engine and writes
// a report.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	summary, err := replay.Run(replay.Options{
		ConfigPath:   cmd.String("config"),
		DataPath:     cmd.String("data"),
		OutputDir:    cmd.String("output"),
		ShowProgress: !cmd.Bool("quiet"),
	}, appLogger)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	fmt.Printf("run %s: %d signals, equity %.6f, profit rate %.6f, max drawdown %.6f, liquidated %v\n",
		summary.RunID, summary.Signals, summary.Equity, summary.ProfitRate, summary.MaxDrawdownRate, summary.Liquidated)

	return nil
}

// liveAction streams Binance klines into an engine configured with the same
// run config strategies, logging signals as they fire.
func liveAction(ctx context.Context, cmd *cli.Command) error {
	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	runConfig, err := backtest.LoadRunConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(runConfig.Capacity, appLogger)
	if err != nil {
		return err
	}

	for _, s := range runConfig.Strategies {
		if _, err := eng.AddStrategy(s.Name, s.Script); err != nil {
			return err
		}
	}

	feedConfig, err := feed.LoadConfig()
	if err != nil {
		return err
	}

	klineFeed, err := feed.NewBinanceFeed(feedConfig, eng, appLogger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := klineFeed.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("live feed failed: %w", err)
	}

	return nil
}

// schemaAction prints or writes the JSON schema of the run config.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	var config backtest.RunConfig

	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if output := cmd.String("output"); output != "" {
		if err := os.WriteFile(output, []byte(schemaJSON), 0644); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}

		return nil
	}

	fmt.Println(schemaJSON)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "streamquant",
		Usage: "Streaming market-data engine: indicators, strategies and futures backtests",
		Commands: []*cli.Command{
			{
				Name:  "backtest",
				Usage: "Replay a historical bar file and write a report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML run config",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the bar CSV file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Report output directory",
						Value:   "report",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Disable the progress bar",
					},
				},
				Action: backtestAction,
			},
			{
				Name:  "live",
				Usage: "Stream live klines through the configured strategies",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML run config",
						Required: true,
					},
				},
				Action: liveAction,
			},
			{
				Name:  "schema",
				Usage: "Generate the JSON schema for the run config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the schema to this file instead of stdout",
					},
				},
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
