package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Supported drivers for OpenDB.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// OpenDB opens a bun database for one of the supported drivers.
func OpenDB(driver, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverSQLite:
		// sqlite serializes writers; a single connection also keeps
		// ":memory:" databases alive and shared.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		sqldb.Close()
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
}

// BunStore is a Store over a bun model table. M must be a bun model struct
// whose primary key column is idColumn.
type BunStore[M any] struct {
	db       bun.IDB
	idColumn string
	idOf     func(*M) string
}

// NewBunStore creates a store for model M. idOf extracts the primary key
// from a model and is used to order GetMulti results. When idOf is nil the
// idColumn field is read through bun's table metadata; it panics if M has no
// such column.
func NewBunStore[M any](db bun.IDB, idColumn string, idOf func(*M) string) *BunStore[M] {
	if idColumn == "" {
		idColumn = "id"
	}
	if idOf == nil {
		idOf = columnIDOf[M](db, idColumn)
	}
	return &BunStore[M]{db: db, idColumn: idColumn, idOf: idOf}
}

func columnIDOf[M any](db bun.IDB, column string) func(*M) string {
	table := db.Dialect().Tables().Get(reflect.TypeOf((*M)(nil)).Elem())
	field := table.LookupField(column)
	if field == nil {
		panic(fmt.Sprintf("store: model %s has no column %q", table.TypeName, column))
	}
	return func(m *M) string {
		return fmt.Sprint(field.Value(reflect.ValueOf(m).Elem()).Interface())
	}
}

// CreateTable creates the model table if it does not exist.
func (s *BunStore[M]) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*M)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Get returns the entity with primary key id or nil.
func (s *BunStore[M]) Get(ctx context.Context, id string) (*M, error) {
	m := new(M)
	err := s.db.NewSelect().
		Model(m).
		Where("? = ?", bun.Ident(s.idColumn), id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Query applies criteria in order and returns the matching rows.
func (s *BunStore[M]) Query(ctx context.Context, criteria ...Criteria) ([]M, error) {
	var rows []M
	q := s.db.NewSelect().Model(&rows)
	for _, c := range criteria {
		if c != nil {
			q = c(q)
		}
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if rows == nil {
		rows = []M{}
	}
	return rows, nil
}

// GetMulti loads every id in one statement.
func (s *BunStore[M]) GetMulti(ctx context.Context, ids []string) ([]*M, error) {
	out := make([]*M, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []M
	err := s.db.NewSelect().
		Model(&rows).
		Where("? IN (?)", bun.Ident(s.idColumn), bun.In(ids)).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	byID := make(map[string]*M, len(rows))
	for i := range rows {
		byID[s.idOf(&rows[i])] = &rows[i]
	}
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

// PutMulti upserts every model in one statement.
func (s *BunStore[M]) PutMulti(ctx context.Context, models []M) error {
	if len(models) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().
		Model(&models).
		On("CONFLICT (?) DO UPDATE", bun.Ident(s.idColumn)).
		Exec(ctx)
	return err
}

// DeleteMulti deletes every listed id in one statement.
func (s *BunStore[M]) DeleteMulti(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*M)(nil)).
		Where("? IN (?)", bun.Ident(s.idColumn), bun.In(ids)).
		Exec(ctx)
	return err
}
