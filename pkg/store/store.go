// Package store persists trained name models in a SQL database.
//
// A model is stored as one row in hostgen_models plus one row per
// probability in hostgen_entries. Entries mirror the model document layout,
// so loading a model goes through the same validation as reading a JSON
// model file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CTAG07/hostgen/pkg/markov"
)

// ErrModelNotFound is returned when no model with the requested name exists.
var ErrModelNotFound = errors.New("store: model not found")

// Entry kinds stored in hostgen_entries.
const (
	KindChar       = "char"
	KindDepth      = "depth"
	KindWordLength = "length"
	KindFirst      = "first"
	KindTransition = "trans"
)

// noLevel is stored as the level of tables that are not per level.
const noLevel = -1

// SetupSchema creates the tables used by the Store. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS hostgen_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    names_trained INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
`
		schemaEntries = `
CREATE TABLE IF NOT EXISTS hostgen_entries (
    model_id INTEGER NOT NULL,
    kind TEXT NOT NULL,
    level INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    probability REAL NOT NULL,
    PRIMARY KEY (model_id, kind, level, symbol)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}
	if _, err = tx.Exec(schemaEntries); err != nil {
		return fmt.Errorf("could not create entries schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// ModelInfo is the metadata of a stored model.
type ModelInfo struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	NamesTrained int       `json:"names_trained"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store reads and writes models. It holds prepared statements and must be
// closed when no longer needed.
type Store struct {
	db              *sql.DB
	stmtGetModel    *sql.Stmt
	stmtListModels  *sql.Stmt
	stmtInsertModel *sql.Stmt
	stmtDeleteModel *sql.Stmt
	stmtGetEntries  *sql.Stmt
	stmtInsertEntry *sql.Stmt
	stmtDelEntries  *sql.Stmt
	stmtCountKinds  *sql.Stmt
	logger          *slog.Logger
}

// New prepares the statements used by the Store. SetupSchema must have been
// called on db first.
func New(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetModel, `SELECT model_id, names_trained, created_at FROM hostgen_models WHERE model_name = ?;`},
		{&s.stmtListModels, `SELECT model_id, model_name, names_trained, created_at FROM hostgen_models ORDER BY model_name;`},
		{&s.stmtInsertModel, `INSERT INTO hostgen_models (model_name, names_trained, created_at) VALUES (?, ?, ?);`},
		{&s.stmtDeleteModel, `DELETE FROM hostgen_models WHERE model_id = ?;`},
		{&s.stmtGetEntries, `SELECT kind, level, symbol, probability FROM hostgen_entries WHERE model_id = ?;`},
		{&s.stmtInsertEntry, `INSERT INTO hostgen_entries (model_id, kind, level, symbol, probability) VALUES (?, ?, ?, ?, ?);`},
		{&s.stmtDelEntries, `DELETE FROM hostgen_entries WHERE model_id = ?;`},
		{&s.stmtCountKinds, `SELECT kind, COUNT(*) FROM hostgen_entries WHERE model_id = ? GROUP BY kind;`},
	}
	for _, st := range stmts {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		*st.dst = stmt
	}
	return s, nil
}

// Close releases all prepared statements held by the Store. The database
// itself is left open.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModel, s.stmtListModels, s.stmtInsertModel, s.stmtDeleteModel,
		s.stmtGetEntries, s.stmtInsertEntry, s.stmtDelEntries, s.stmtCountKinds,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Info returns the metadata of the named model.
func (s *Store) Info(ctx context.Context, name string) (ModelInfo, error) {
	info := ModelInfo{Name: name}
	var created int64
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&info.ID, &info.NamesTrained, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelInfo{}, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if err != nil {
		return ModelInfo{}, fmt.Errorf("could not query model '%s': %w", name, err)
	}
	info.CreatedAt = time.Unix(created, 0).UTC()
	return info, nil
}

// List returns the metadata of every stored model, ordered by name.
func (s *Store) List(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtListModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make([]ModelInfo, 0)
	for rows.Next() {
		var info ModelInfo
		var created int64
		if err = rows.Scan(&info.ID, &info.Name, &info.NamesTrained, &created); err != nil {
			return nil, err
		}
		info.CreatedAt = time.Unix(created, 0).UTC()
		models = append(models, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// Save stores m under name, replacing any model already stored under that
// name. The whole operation runs in one transaction. Others buckets are not
// stored.
func (s *Store) Save(ctx context.Context, name string, m *markov.Model) (ModelInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var oldID int64
	err = tx.StmtContext(ctx, s.stmtGetModel).QueryRowContext(ctx, name).Scan(&oldID, new(int), new(int64))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return ModelInfo{}, fmt.Errorf("could not query model '%s': %w", name, err)
	default:
		if _, err = tx.StmtContext(ctx, s.stmtDelEntries).ExecContext(ctx, oldID); err != nil {
			return ModelInfo{}, fmt.Errorf("failed to remove entries of model %d: %w", oldID, err)
		}
		if _, err = tx.StmtContext(ctx, s.stmtDeleteModel).ExecContext(ctx, oldID); err != nil {
			return ModelInfo{}, fmt.Errorf("failed to remove model %d: %w", oldID, err)
		}
	}

	info := ModelInfo{Name: name, NamesTrained: m.NamesTrained(), CreatedAt: time.Now().UTC().Truncate(time.Second)}
	res, err := tx.StmtContext(ctx, s.stmtInsertModel).ExecContext(ctx, name, info.NamesTrained, info.CreatedAt.Unix())
	if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to insert model '%s': %w", name, err)
	}
	if info.ID, err = res.LastInsertId(); err != nil {
		return ModelInfo{}, err
	}

	insert := tx.StmtContext(ctx, s.stmtInsertEntry)
	var count int
	err = eachEntry(m.Document(), func(kind string, level int, symbol string, p float64) error {
		count++
		if _, err := insert.ExecContext(ctx, info.ID, kind, level, symbol, p); err != nil {
			return fmt.Errorf("failed to insert %s entry %q: %w", kind, symbol, err)
		}
		return nil
	})
	if err != nil {
		return ModelInfo{}, err
	}

	if err = tx.Commit(); err != nil {
		return ModelInfo{}, fmt.Errorf("could not commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int64("model_id", info.ID),
		slog.Int("entries", count),
		slog.Bool("replaced", oldID != 0),
	)
	return info, nil
}

// Load rebuilds the named model. The returned model has no Others buckets.
func (s *Store) Load(ctx context.Context, name string) (*markov.Model, error) {
	info, err := s.Info(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmtGetEntries.QueryContext(ctx, info.ID)
	if err != nil {
		return nil, fmt.Errorf("could not query entries of model '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	doc := newDocument()
	for rows.Next() {
		var kind, symbol string
		var level int
		var p float64
		if err = rows.Scan(&kind, &level, &symbol, &p); err != nil {
			return nil, err
		}
		if err = doc.set(kind, level, symbol, p); err != nil {
			return nil, fmt.Errorf("model '%s': %w", name, err)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	m, err := markov.FromDocument(doc.Document)
	if err != nil {
		return nil, fmt.Errorf("model '%s': %w", name, err)
	}
	s.logger.DebugContext(ctx, "Model loaded", slog.String("model_name", name), slog.Int64("model_id", info.ID))
	return m, nil
}

// Remove deletes the named model and its entries.
func (s *Store) Remove(ctx context.Context, name string) error {
	info, err := s.Info(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtDelEntries).ExecContext(ctx, info.ID); err != nil {
		return fmt.Errorf("failed to remove entries for model %d: %w", info.ID, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteModel).ExecContext(ctx, info.ID); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", info.ID, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", name),
		slog.Int64("model_id", info.ID),
	)
	return tx.Commit()
}
