package warehouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/ctd"
)

// DriverInserter inserts through clickhouse-go batches.
type DriverInserter struct {
	conn  driver.Conn
	table Table
}

// OpenDriver opens a clickhouse-go connection.
func OpenDriver(ctx context.Context, opts NativeOptions, table Table) (*DriverInserter, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Address},
		Auth: clickhouse.Auth{
			Database: table.Database,
			Username: opts.User,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return &DriverInserter{conn: conn, table: table}, nil
}

func (d *DriverInserter) Prepare(ctx context.Context, truncate bool) error {
	if err := d.conn.Exec(ctx, d.table.CreateTableSQL()); err != nil {
		return err
	}
	if truncate {
		return d.conn.Exec(ctx, d.table.TruncateSQL())
	}
	return nil
}

func (d *DriverInserter) Insert(ctx context.Context, rows []ctd.Row) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := d.conn.PrepareBatch(ctx, "INSERT INTO "+d.table.FQN())
	if err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		if err := batch.Append(
			r.Pressure,
			r.Temperature,
			r.Salinity,
			r.Depth,
			r.SourceFile,
			r.Date,
			r.Time,
			r.Latitude,
			r.Longitude,
			r.StationNumber,
		); err != nil {
			batch.Abort()
			return err
		}
	}
	return batch.Send()
}

func (d *DriverInserter) Close() error {
	return d.conn.Close()
}
