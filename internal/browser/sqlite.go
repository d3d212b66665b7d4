//go:build sqlite

package browser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"swimevo/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteBrowser struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteBrowser(path string) *SQLiteBrowser {
	return &SQLiteBrowser{path: path}
}

func (b *SQLiteBrowser) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.path == "" {
		return errors.New("sqlite path is required")
	}
	if b.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", b.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	b.db = db
	return nil
}

func (b *SQLiteBrowser) InsertRun(ctx context.Context, tags, notes string) (model.RunRecord, error) {
	db, err := b.getDB()
	if err != nil {
		return model.RunRecord{}, err
	}

	res, err := db.ExecContext(ctx, `INSERT INTO runs (tags, notes) VALUES (?, ?)`, tags, notes)
	if err != nil {
		return model.RunRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.RunRecord{}, err
	}
	return model.RunRecord{ID: int(id), Tags: tags, Notes: notes}, nil
}

func (b *SQLiteBrowser) GetRun(ctx context.Context, id int) (model.RunRecord, bool, error) {
	db, err := b.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var rec model.RunRecord
	err = db.QueryRowContext(ctx, `SELECT id, tags, notes FROM runs WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Tags, &rec.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}
	return rec, true, nil
}

func (b *SQLiteBrowser) RunsByTag(ctx context.Context, fragment string) ([]model.RunRecord, error) {
	db, err := b.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, tags, notes FROM runs WHERE instr(tags, ?) > 0 ORDER BY id`, fragment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.RunRecord, 0)
	for rows.Next() {
		var rec model.RunRecord
		if err := rows.Scan(&rec.ID, &rec.Tags, &rec.Notes); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *SQLiteBrowser) InsertIndicator(ctx context.Context, rec model.IndicatorRecord) error {
	db, err := b.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO indicators (run_id, name, value, tags) VALUES (?, ?, ?, ?)`,
		rec.RunID, rec.Name, rec.Value, rec.Tags)
	return err
}

func (b *SQLiteBrowser) Indicators(ctx context.Context, runID int, name string) ([]model.IndicatorRecord, error) {
	db, err := b.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT run_id, name, value, tags FROM indicators WHERE run_id = ? AND name = ?`, runID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIndicators(rows)
}

func (b *SQLiteBrowser) AllIndicators(ctx context.Context, runID int) ([]model.IndicatorRecord, error) {
	db, err := b.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT run_id, name, value, tags FROM indicators WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIndicators(rows)
}

func scanIndicators(rows *sql.Rows) ([]model.IndicatorRecord, error) {
	out := make([]model.IndicatorRecord, 0)
	for rows.Next() {
		var rec model.IndicatorRecord
		if err := rows.Scan(&rec.RunID, &rec.Name, &rec.Value, &rec.Tags); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *SQLiteBrowser) InsertParameter(ctx context.Context, rec model.ParameterRecord) error {
	db, err := b.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO parameters (run_id, name, value, tags) VALUES (?, ?, ?, ?)`,
		rec.RunID, rec.Name, rec.Value, rec.Tags)
	return err
}

func (b *SQLiteBrowser) Parameters(ctx context.Context, runID int) ([]model.ParameterRecord, error) {
	db, err := b.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT run_id, name, value, tags FROM parameters WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ParameterRecord, 0)
	for rows.Next() {
		var rec model.ParameterRecord
		if err := rows.Scan(&rec.RunID, &rec.Name, &rec.Value, &rec.Tags); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *SQLiteBrowser) AttachResultFile(ctx context.Context, rec model.ResultFileRecord) error {
	db, err := b.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO resultfiles (run_id, tags, path) VALUES (?, ?, ?)`,
		rec.RunID, rec.Tags, rec.Path)
	return err
}

func (b *SQLiteBrowser) ResultFiles(ctx context.Context, runID int) ([]model.ResultFileRecord, error) {
	db, err := b.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT run_id, tags, path FROM resultfiles WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ResultFileRecord, 0)
	for rows.Next() {
		var rec model.ResultFileRecord
		if err := rows.Scan(&rec.RunID, &rec.Tags, &rec.Path); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *SQLiteBrowser) DeleteRun(ctx context.Context, id int) error {
	db, err := b.getDB()
	if err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM indicators WHERE run_id = ?`,
		`DELETE FROM parameters WHERE run_id = ?`,
		`DELETE FROM resultfiles WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err := db.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

func (b *SQLiteBrowser) ResetIDs(ctx context.Context) error {
	db, err := b.getDB()
	if err != nil {
		return err
	}

	var maxID sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(id) FROM runs`).Scan(&maxID); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`UPDATE sqlite_sequence SET seq = ? WHERE name = 'runs'`, maxID.Int64)
	return err
}

func (b *SQLiteBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *SQLiteBrowser) getDB() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, errors.New("browser is not initialized")
	}
	return b.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tags TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS indicators (
			run_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			value REAL NOT NULL,
			tags TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS parameters (
			run_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			value REAL NOT NULL,
			tags TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS resultfiles (
			run_id INTEGER NOT NULL,
			tags TEXT NOT NULL,
			path TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
