// Package feed streams live Binance klines into an engine. The first event
// of each candle appends a new bar; every later event for the same candle
// revises it in place, so indicators and strategies see live ticks the same
// way they see finalized bars.
package feed

import (
	"context"
	"strconv"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/rxtech-lab/streamquant/internal/engine"
	"github.com/rxtech-lab/streamquant/internal/logger"
	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// BinanceFeed subscribes to one symbol's kline stream and drives an engine.
type BinanceFeed struct {
	config *Config
	engine *engine.Engine
	logger *logger.Logger

	// Open time of the candle currently held as the engine's last bar.
	currentOpenTime int64
}

// NewBinanceFeed creates a feed that pushes klines into the given engine.
func NewBinanceFeed(config *Config, eng *engine.Engine, log *logger.Logger) (*BinanceFeed, error) {
	if config == nil {
		return nil, errors.New(errors.ErrCodeFeedConfig, "feed config is nil")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BinanceFeed{
		config:          config,
		engine:          eng,
		logger:          log,
		currentOpenTime: -1,
	}, nil
}

func klineToBar(k binance.WsKline) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeDataParse, "bad open price", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeDataParse, "bad high price", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeDataParse, "bad low price", err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeDataParse, "bad close price", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeDataParse, "bad volume", err)
	}
	buyVolume, err := strconv.ParseFloat(k.ActiveBuyVolume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeDataParse, "bad buy volume", err)
	}

	return types.NewBar(k.StartTime/1000, open, high, low, closePrice, volume, buyVolume), nil
}

// handleKline routes one websocket event into the engine: a new candle open
// time appends, the same open time revises the live bar.
func (f *BinanceFeed) handleKline(event *binance.WsKlineEvent) error {
	bar, err := klineToBar(event.Kline)
	if err != nil {
		return err
	}

	if event.Kline.StartTime != f.currentOpenTime {
		f.engine.Push(bar)
		f.currentOpenTime = event.Kline.StartTime

		return nil
	}

	return f.engine.UpdateLast(bar)
}

// Run subscribes to the kline stream and blocks until the context is
// cancelled or the stream closes.
func (f *BinanceFeed) Run(ctx context.Context) error {
	f.logger.Info("starting kline stream",
		zap.String("symbol", f.config.Symbol),
		zap.String("interval", f.config.Interval),
	)

	var streamErr error

	wsHandler := func(event *binance.WsKlineEvent) {
		if err := f.handleKline(event); err != nil {
			f.logger.Error("dropping kline event", zap.Error(err))
		}
	}
	errHandler := func(err error) {
		streamErr = err
	}

	doneC, stopC, err := binance.WsKlineServe(f.config.Symbol, f.config.Interval, wsHandler, errHandler)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFeedStream, "failed to open kline stream", err)
	}

	select {
	case <-ctx.Done():
		close(stopC)
		<-doneC

		return ctx.Err()
	case <-doneC:
		if streamErr != nil {
			return errors.Wrap(errors.ErrCodeFeedStream, "kline stream closed", streamErr)
		}

		return nil
	}
}
