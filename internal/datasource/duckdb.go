// Package datasource loads historical bars for replay. Files are read
// through DuckDB, which handles CSV parsing and timestamp filtering in SQL.
package datasource

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/streamquant/internal/logger"
	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// BarSource streams historical bars in timestamp order.
type BarSource interface {
	// Initialize points the source at a data file. Expected columns:
	// timestamp (unix seconds), open, high, low, close, volume, buy_volume.
	Initialize(path string) error
	// Count returns the number of bars inside the optional time bounds.
	Count(start, end optional.Option[time.Time]) (int, error)
	// Iterate calls fn for every bar inside the bounds, oldest first.
	// Iteration stops at the first error fn returns.
	Iterate(start, end optional.Option[time.Time], fn func(bar types.Bar) error) error
	Close() error
}

// DuckDBBarSource reads bars from a CSV file through an in-memory DuckDB
// view.
type DuckDBBarSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewBarSource creates a DuckDB-backed bar source.
func NewBarSource(log *logger.Logger) (*DuckDBBarSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataUnavailable, "failed to open data database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataUnavailable, "failed to connect to data database", err)
	}

	return &DuckDBBarSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize implements BarSource.
func (d *DuckDBBarSource) Initialize(path string) error {
	d.logger.Debug("initializing bar source", zap.String("path", path))

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS bars;`); err != nil {
		return errors.Wrap(errors.ErrCodeDataUnavailable, "failed to drop existing view", err)
	}

	// Squirrel does not support CREATE VIEW; read_csv_auto infers the
	// column types from the file.
	query := fmt.Sprintf(`CREATE VIEW bars AS SELECT * FROM read_csv_auto('%s');`, path)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataParse, err, "failed to load bars from %s", path)
	}

	return nil
}

func timeBounds(start, end optional.Option[time.Time]) squirrel.And {
	var conds squirrel.And
	if start.IsSome() {
		conds = append(conds, squirrel.GtOrEq{"timestamp": start.Unwrap().Unix()})
	}
	if end.IsSome() {
		conds = append(conds, squirrel.LtOrEq{"timestamp": end.Unwrap().Unix()})
	}

	return conds
}

// Count implements BarSource.
func (d *DuckDBBarSource) Count(start, end optional.Option[time.Time]) (int, error) {
	query := d.sq.Select("COUNT(*)").From("bars")
	if conds := timeBounds(start, end); len(conds) > 0 {
		query = query.Where(conds)
	}

	var count int
	if err := query.RunWith(d.db).QueryRow().Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDataUnavailable, "failed to count bars", err)
	}

	return count, nil
}

// Iterate implements BarSource.
func (d *DuckDBBarSource) Iterate(start, end optional.Option[time.Time], fn func(bar types.Bar) error) error {
	query := d.sq.
		Select("timestamp", "open", "high", "low", "close", "volume", "buy_volume").
		From("bars").
		OrderBy("timestamp ASC")
	if conds := timeBounds(start, end); len(conds) > 0 {
		query = query.Where(conds)
	}

	rows, err := query.RunWith(d.db).Query()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataUnavailable, "failed to query bars", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.BuyVolume); err != nil {
			return errors.Wrap(errors.ErrCodeDataParse, "failed to scan bar", err)
		}

		if err := fn(bar); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeDataUnavailable, "error iterating bars", err)
	}

	return nil
}

// Close implements BarSource.
func (d *DuckDBBarSource) Close() error {
	if d == nil || d.db == nil {
		return nil
	}

	return d.db.Close()
}
