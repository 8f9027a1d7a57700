package warehouse

import (
	"context"

	"github.com/ClickHouse/ch-go"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/ctd"
)

// NativeInserter inserts over the ch-go native protocol with LZ4.
type NativeInserter struct {
	conn  *ch.Client
	table Table
	batch *Batch
}

// NativeOptions configures the native connection.
type NativeOptions struct {
	Address  string
	User     string
	Password string
}

// DialNative connects to ClickHouse over the native protocol.
func DialNative(ctx context.Context, opts NativeOptions, table Table) (*NativeInserter, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     opts.Address,
		Database:    table.Database,
		User:        opts.User,
		Password:    opts.Password,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, err
	}
	return &NativeInserter{conn: conn, table: table, batch: NewBatch()}, nil
}

func (n *NativeInserter) Prepare(ctx context.Context, truncate bool) error {
	if err := n.conn.Do(ctx, ch.Query{Body: n.table.CreateTableSQL()}); err != nil {
		return err
	}
	if truncate {
		return n.conn.Do(ctx, ch.Query{Body: n.table.TruncateSQL()})
	}
	return nil
}

func (n *NativeInserter) Insert(ctx context.Context, rows []ctd.Row) error {
	n.batch.Reset()
	for i := range rows {
		n.batch.AddRow(&rows[i])
	}
	if n.batch.Len() == 0 {
		return nil
	}
	return n.conn.Do(ctx, ch.Query{
		Body:  n.table.InsertSQL(),
		Input: n.batch.Input(),
	})
}

func (n *NativeInserter) Close() error {
	return n.conn.Close()
}
