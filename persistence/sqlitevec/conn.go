package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/flarexio/simgen/vector"
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS _simgen_collections (
    name TEXT PRIMARY KEY COLLATE NOCASE,
    dimension INTEGER NOT NULL,
    metric TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`

// QuoteIdentifier places name inside double quotes, doubling any embedded
// quote, so it can only ever be read as a single identifier.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type conn struct {
	c *sql.Conn
}

func (c *conn) CreateTable(ctx context.Context, collection vector.Collection) error {
	tx, err := c.c.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO _simgen_collections(name, dimension, metric, created_at) VALUES (?, ?, ?, ?)`,
		collection.Name, collection.Dimension, string(collection.Metric), time.Now().Unix(),
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: %v", vector.ErrTableExists, err)
		}
		return classify(err)
	}

	ddl := fmt.Sprintf(
		"CREATE VIRTUAL TABLE %s USING vec0(key TEXT, vec float[%d] distance_metric=%s)",
		QuoteIdentifier(collection.Name), collection.Dimension, collection.Metric,
	)

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return classify(err)
	}

	return tx.Commit()
}

// DropTable only drops tables that were registered by CreateTable, so vec0
// shadow tables can never be addressed as collections. Dropping an
// unregistered name is a no-op.
func (c *conn) DropTable(ctx context.Context, name string) error {
	tx, err := c.c.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM _simgen_collections WHERE name = ?`, name)
	if err != nil {
		return classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n > 0 {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdentifier(name)); err != nil {
			return classify(err)
		}
	}

	return tx.Commit()
}

func (c *conn) Describe(ctx context.Context, name string) (vector.Collection, error) {
	collection := vector.Collection{Name: name}

	var metric string
	err := c.c.QueryRowContext(ctx,
		`SELECT dimension, metric FROM _simgen_collections WHERE name = ?`, name,
	).Scan(&collection.Dimension, &metric)

	if errors.Is(err, sql.ErrNoRows) {
		return vector.Collection{}, fmt.Errorf("%w: %s", vector.ErrTableNotFound, name)
	}

	if err != nil {
		return vector.Collection{}, classify(err)
	}

	collection.Metric = vector.Metric(metric)
	return collection, nil
}

func (c *conn) Tables(ctx context.Context) ([]vector.Collection, error) {
	rows, err := c.c.QueryContext(ctx,
		`SELECT name, dimension, metric FROM _simgen_collections ORDER BY name`,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	collections := make([]vector.Collection, 0)
	for rows.Next() {
		var (
			collection vector.Collection
			metric     string
		)

		if err := rows.Scan(&collection.Name, &collection.Dimension, &metric); err != nil {
			return nil, err
		}

		collection.Metric = vector.Metric(metric)
		collections = append(collections, collection)
	}

	return collections, rows.Err()
}

func (c *conn) InsertRow(ctx context.Context, table string, key string, vec []float32) (int64, error) {
	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return 0, err
	}

	tx, err := c.c.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s(key, vec) VALUES (?, ?)", QuoteIdentifier(table)),
	)
	if err != nil {
		return 0, classify(err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, key, blob)
	if err != nil {
		return 0, classify(err)
	}

	rowid, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return rowid, nil
}

func (c *conn) NearestNeighbors(ctx context.Context, table string, query []float32, limit int) ([]vector.Neighbor, error) {
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, err
	}

	rows, err := c.c.QueryContext(ctx,
		fmt.Sprintf(
			"SELECT rowid, key, distance FROM %s WHERE vec MATCH ? AND k = ? ORDER BY distance",
			QuoteIdentifier(table),
		),
		blob, limit,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	neighbors := make([]vector.Neighbor, 0, limit)
	for rows.Next() {
		var n vector.Neighbor
		if err := rows.Scan(&n.RowID, &n.Key, &n.Distance); err != nil {
			return nil, err
		}

		neighbors = append(neighbors, n)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return neighbors, nil
}

func (c *conn) Ping(ctx context.Context) error {
	var one int
	if err := c.c.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return err
	}

	if one != 1 {
		return errors.New("unexpected ping result")
	}

	return nil
}
