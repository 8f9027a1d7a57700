// Package warehouse loads a CTD Parquet artifact into ClickHouse, either over
// the ch-go native protocol or through the clickhouse-go database driver.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/ctd"
)

// DefaultBatchSize is the number of rows sent per insert.
const DefaultBatchSize = 100_000

// Table identifies the target table.
type Table struct {
	Database string
	Name     string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects names that would need quoting.
func (t Table) Validate() error {
	if !identRe.MatchString(t.Database) {
		return fmt.Errorf("invalid database name %q", t.Database)
	}
	if !identRe.MatchString(t.Name) {
		return fmt.Errorf("invalid table name %q", t.Name)
	}
	return nil
}

// FQN returns database.table.
func (t Table) FQN() string {
	return t.Database + "." + t.Name
}

// CreateTableSQL returns the DDL for the observations table.
func (t Table) CreateTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.FQN())
	for i, col := range ctd.Columns {
		fmt.Fprintf(&b, "    %s %s", col.Name, columnType(col))
		if i < len(ctd.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(") ENGINE = MergeTree\nORDER BY (sourceFile, pressure)")
	return b.String()
}

// InsertSQL returns the INSERT prefix naming every column.
func (t Table) InsertSQL() string {
	names := make([]string, len(ctd.Columns))
	for i, col := range ctd.Columns {
		names[i] = col.Name
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES", t.FQN(), strings.Join(names, ", "))
}

// TruncateSQL returns the statement that empties the table.
func (t Table) TruncateSQL() string {
	return "TRUNCATE TABLE IF EXISTS " + t.FQN()
}

func columnType(col ctd.Column) string {
	base := "Float64"
	if col.Kind == parquet.ByteArray {
		base = "String"
	}
	if col.Optional {
		return "Nullable(" + base + ")"
	}
	return base
}

// Inserter writes rows to ClickHouse.
type Inserter interface {
	// Prepare creates the table if needed and optionally truncates it.
	Prepare(ctx context.Context, truncate bool) error
	Insert(ctx context.Context, rows []ctd.Row) error
	Close() error
}

// LoadResult is the outcome of Load.
type LoadResult struct {
	Rows    int64
	Batches int
}

// Load streams the artifact at path into ins in batches of batchSize rows.
func Load(ctx context.Context, ins Inserter, path string, batchSize int, truncate bool, logger *slog.Logger) (*LoadResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := ins.Prepare(ctx, truncate); err != nil {
		return &LoadResult{}, fmt.Errorf("prepare table: %w", err)
	}

	res := &LoadResult{}
	err := ctd.ReadArtifact(path, batchSize, func(rows []ctd.Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ins.Insert(ctx, rows); err != nil {
			return fmt.Errorf("insert batch %d: %w", res.Batches+1, err)
		}
		res.Rows += int64(len(rows))
		res.Batches++
		logger.Debug("batch inserted", "batch", res.Batches, "rows", len(rows), "total", res.Rows)
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, nil
}
