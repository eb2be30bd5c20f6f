package cacheinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// cachedQueryResultModel is the table row behind the SQL store.
type cachedQueryResultModel struct {
	bun.BaseModel `bun:"table:cached_query_results,alias:cqr"`

	ID         string    `bun:"id,pk"`
	Result     []byte    `bun:"result"`
	ResultDict []byte    `bun:"result_dict"`
	Created    time.Time `bun:"created,notnull"`
	Updated    time.Time `bun:"updated,notnull"`
}

// sqlStore keeps records in the cached_query_results table.
type sqlStore struct {
	db bun.IDB
}

// NewSQLStore creates a record store over db. The table must exist; see
// CreateSQLTable.
func NewSQLStore(db bun.IDB) (*sqlStore, error) {
	if db == nil {
		return nil, &ConfigError{Field: "DB", Message: "cannot be nil"}
	}
	return &sqlStore{db: db}, nil
}

// CreateSQLTable creates the cached_query_results table if it is missing.
func CreateSQLTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*cachedQueryResultModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Get returns the row at key, or nil when there is none.
func (s *sqlStore) Get(ctx context.Context, key string) (*Record, error) {
	row := new(cachedQueryResultModel)
	err := s.db.NewSelect().
		Model(row).
		Where("? = ?", bun.Ident("id"), key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &Record{
		Key:        row.ID,
		Result:     row.Result,
		ResultDict: row.ResultDict,
		Created:    row.Created,
		Updated:    row.Updated,
	}, nil
}

// Put upserts the row. Both payload columns are overwritten so a write to one
// slot never leaves a stale value in the other.
func (s *sqlStore) Put(ctx context.Context, record *Record) error {
	stamp(record)
	row := &cachedQueryResultModel{
		ID:         record.Key,
		Result:     record.Result,
		ResultDict: record.ResultDict,
		Created:    record.Created,
		Updated:    record.Updated,
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("result = EXCLUDED.result").
		Set("result_dict = EXCLUDED.result_dict").
		Set("updated = EXCLUDED.updated").
		Exec(ctx)
	return err
}

// DeleteMulti removes every listed key in a single statement.
func (s *sqlStore) DeleteMulti(ctx context.Context, keys []string) error {
	keys = dedupeKeys(keys)
	if len(keys) == 0 {
		return nil
	}

	_, err := s.db.NewDelete().
		Model((*cachedQueryResultModel)(nil)).
		Where("? IN (?)", bun.Ident("id"), bun.In(keys)).
		Exec(ctx)
	return err
}

// Count returns the number of stored rows.
func (s *sqlStore) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().
		Model((*cachedQueryResultModel)(nil)).
		Count(ctx)
}
