package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/streamquant/internal/backtest"
	"github.com/rxtech-lab/streamquant/internal/types"
)

type WriterTestSuite struct {
	suite.Suite

	writer *Writer
}

func TestWriterSuite(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

func (suite *WriterTestSuite) SetupTest() {
	var err error
	suite.writer, err = NewWriter(nil)
	suite.Require().NoError(err)
}

func (suite *WriterTestSuite) TearDownTest() {
	suite.NoError(suite.writer.Close())
}

func (suite *WriterTestSuite) TestRecordAndExport() {
	suite.NoError(suite.writer.RecordSignal(types.Signal{
		StrategyID: 1,
		Action:     types.ActionBuy,
		Timestamp:  1700000000,
	}, 101.5))
	suite.NoError(suite.writer.RecordSignal(types.Signal{
		StrategyID: 1,
		Action:     types.ActionSell,
		Timestamp:  1700000060,
	}, 103.25))
	suite.NoError(suite.writer.RecordEquity(1700000060, 103.25, backtest.Result{
		Equity:          1172.5,
		Profit:          172.5,
		ProfitRate:      0.1725,
		MaxDrawdownRate: 0.02,
	}))

	suite.Equal(2, suite.writer.SignalCount())

	dir := filepath.Join(suite.T().TempDir(), "report")
	suite.Require().NoError(suite.writer.Write(dir))

	for _, name := range []string{"signals.parquet", "equity_curve.parquet"} {
		info, err := os.Stat(filepath.Join(dir, name))
		suite.NoError(err, name)
		suite.Greater(info.Size(), int64(0), name)
	}
}

func (suite *WriterTestSuite) TestSummarizeRounds() {
	suite.NoError(suite.writer.RecordSignal(types.Signal{StrategyID: 2, Action: types.ActionBuy, Timestamp: 1}, 100))

	summary := suite.writer.Summarize(backtest.Result{
		Equity:          1234.5678901234,
		Profit:          234.5678901234,
		ProfitRate:      0.2345678901,
		MaxDrawdownRate: 0.0123456789,
		Liquidated:      true,
	})

	suite.Equal(suite.writer.RunID(), summary.RunID)
	suite.Equal(1, summary.Signals)
	suite.Equal(1234.56789, summary.Equity)
	suite.Equal(234.56789, summary.Profit)
	suite.Equal(0.234568, summary.ProfitRate)
	suite.Equal(0.012346, summary.MaxDrawdownRate)
	suite.True(summary.Liquidated)
}
