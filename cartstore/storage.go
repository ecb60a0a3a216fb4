package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmilosz/storecart/core/cart"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SnapshotSchemaVersion is written with every snapshot. Loading a snapshot
// carrying a different version fails with ErrSnapshotSchema so stale layouts
// are discarded instead of misread.
const SnapshotSchemaVersion = 1

var (
	// ErrNoSnapshot reports that nothing is stored under the key.
	ErrNoSnapshot = errors.New("no snapshot stored")

	// ErrSnapshotSchema reports a snapshot written by an incompatible
	// schema version.
	ErrSnapshotSchema = errors.New("unknown snapshot schema version")
)

// Storage persists the last known item list across restarts. Writes are
// best-effort: stores log failures instead of failing mutations on them.
type Storage interface {
	Load(ctx context.Context) ([]cart.LineItem, error)
	Save(ctx context.Context, items []cart.LineItem) error
	Clear(ctx context.Context) error
}

var bindOnce sync.Once

// SQLStorage keeps snapshots in a local sqlite file, one row per key. It is
// the durable stand-in for the single local-storage key the browser variants
// write.
type SQLStorage struct {
	db  *sqlx.DB
	key string
}

// OpenStorage opens (and if needed creates) the snapshot database at path.
// Separate carts use separate keys within the same file.
func OpenStorage(path string, key string) (*SQLStorage, error) {
	bindOnce.Do(func() {
		sqlx.BindDriver("sqlite", sqlx.QUESTION)
	})

	db, err := sqlx.Open("sqlite", "file:"+path+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	// The sqlite driver dislikes concurrent writers on one file.
	db.SetMaxOpenConns(1)

	const schema = `
	CREATE TABLE IF NOT EXISTS cart_snapshots (
		snapshot_key   TEXT NOT NULL,
		schema_version INTEGER NOT NULL,
		data           TEXT NOT NULL,
		updated_at     TIMESTAMP NOT NULL,

		PRIMARY KEY (snapshot_key)
	)`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	return &SQLStorage{db: db, key: key}, nil
}

func (s *SQLStorage) Load(ctx context.Context) ([]cart.LineItem, error) {
	const q = `
	SELECT schema_version, data FROM cart_snapshots
	WHERE snapshot_key = :snapshot_key`

	rows, err := sqlx.NamedQueryContext(ctx, s.db, q, map[string]interface{}{"snapshot_key": s.key})
	if err != nil {
		return nil, fmt.Errorf("selecting snapshot: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoSnapshot
	}

	var row struct {
		SchemaVersion int    `db:"schema_version"`
		Data          string `db:"data"`
	}
	if err := rows.StructScan(&row); err != nil {
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}

	if row.SchemaVersion != SnapshotSchemaVersion {
		return nil, fmt.Errorf("snapshot version %d: %w", row.SchemaVersion, ErrSnapshotSchema)
	}

	var items []cart.LineItem
	if err := json.Unmarshal([]byte(row.Data), &items); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return items, nil
}

func (s *SQLStorage) Save(ctx context.Context, items []cart.LineItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	const q = `
	INSERT INTO cart_snapshots (snapshot_key, schema_version, data, updated_at)
	VALUES (:snapshot_key, :schema_version, :data, :updated_at)
	ON CONFLICT (snapshot_key) DO UPDATE SET
		schema_version = excluded.schema_version,
		data = excluded.data,
		updated_at = excluded.updated_at`

	arg := map[string]interface{}{
		"snapshot_key":   s.key,
		"schema_version": SnapshotSchemaVersion,
		"data":           string(data),
		"updated_at":     time.Now().UTC(),
	}

	if _, err := sqlx.NamedExecContext(ctx, s.db, q, arg); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}
	return nil
}

func (s *SQLStorage) Clear(ctx context.Context) error {
	const q = `
	DELETE FROM cart_snapshots
	WHERE snapshot_key = :snapshot_key`

	arg := map[string]interface{}{"snapshot_key": s.key}
	if _, err := sqlx.NamedExecContext(ctx, s.db, q, arg); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// MemoryStorage holds a snapshot in memory. Useful in tests and for callers
// that want a store without durability.
type MemoryStorage struct {
	mu    sync.Mutex
	items []cart.LineItem
	set   bool
}

func (m *MemoryStorage) Load(ctx context.Context) ([]cart.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrNoSnapshot
	}
	out := make([]cart.LineItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *MemoryStorage) Save(ctx context.Context, items []cart.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make([]cart.LineItem, len(items))
	copy(m.items, items)
	m.set = true
	return nil
}

func (m *MemoryStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items, m.set = nil, false
	return nil
}
