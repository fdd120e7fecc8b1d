package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"

	"github.com/code-animator/backend/internal/models"
)

// DuckStore keeps plans and the generation log in a DuckDB database file.
type DuckStore struct {
	db     *sql.DB
	dbPath string
}

// NewDuckStore opens (or creates) the plan database in dataDir.
func NewDuckStore(dataDir string) (*DuckStore, error) {
	return NewDuckStoreAtPath(filepath.Join(dataDir, "plans.duckdb"))
}

// DuckOptions tunes the DuckDB connection.
type DuckOptions struct {
	Threads     int
	MemoryLimit string
}

// DefaultDuckOptions keeps the plan database small; it only holds JSON documents.
var DefaultDuckOptions = DuckOptions{Threads: 2, MemoryLimit: "256MB"}

// NewDuckStoreAtPath opens (or creates) the plan database at dbPath. An empty
// path opens an in-memory database.
func NewDuckStoreAtPath(dbPath string) (*DuckStore, error) {
	return NewDuckStoreWithOptions(dbPath, DefaultDuckOptions)
}

// NewDuckStoreWithOptions opens the plan database at dbPath with explicit tuning.
func NewDuckStoreWithOptions(dbPath string, opts DuckOptions) (*DuckStore, error) {
	fmt.Printf("[DuckStore] Opening plan database at: %q\n", dbPath)

	if opts.Threads <= 0 {
		opts.Threads = DefaultDuckOptions.Threads
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = DefaultDuckOptions.MemoryLimit
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				fmt.Printf("[DuckStore] Pragma warning: %v\n", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DuckStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id            VARCHAR PRIMARY KEY,
			title         VARCHAR NOT NULL,
			description   VARCHAR,
			source        VARCHAR NOT NULL,
			prompt        VARCHAR,
			step_count    INTEGER NOT NULL,
			element_count INTEGER NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			document      VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS generations (
			id          VARCHAR PRIMARY KEY,
			prompt      VARCHAR NOT NULL,
			num_steps   INTEGER NOT NULL,
			plan_id     VARCHAR,
			error       VARCHAR,
			duration_ms BIGINT NOT NULL,
			created_at  TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Save inserts a plan.
func (ds *DuckStore) Save(meta models.PlanInfo, plan *models.AnimationPlan) (*models.PlanInfo, error) {
	info := prepareInfo(meta, plan, func() string { return uuid.New().String() })

	doc, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encoding plan: %w", err)
	}

	_, err = ds.db.Exec(`
		INSERT INTO plans (id, title, description, source, prompt, step_count, element_count, created_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Title, info.Description, string(info.Source), info.Prompt,
		info.StepCount, info.ElementCount, info.CreatedAt.UTC(), string(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting plan: %w", err)
	}

	fmt.Printf("[DuckStore %s] Saved %q (%d steps)\n", shortID(info.ID), info.Title, info.StepCount)
	return &info, nil
}

const planColumns = `id, title, COALESCE(description, ''), source, COALESCE(prompt, ''), step_count, element_count, created_at`

func scanInfo(scan func(dest ...any) error) (*models.PlanInfo, error) {
	var info models.PlanInfo
	var source string
	if err := scan(&info.ID, &info.Title, &info.Description, &source, &info.Prompt,
		&info.StepCount, &info.ElementCount, &info.CreatedAt); err != nil {
		return nil, err
	}
	info.Source = models.PlanSource(source)
	return &info, nil
}

// Get loads a plan by ID.
func (ds *DuckStore) Get(id string) (*models.StoredPlan, error) {
	row := ds.db.QueryRow(`SELECT `+planColumns+`, document FROM plans WHERE id = ?`, id)

	var doc string
	info, err := scanInfo(func(dest ...any) error {
		return row.Scan(append(dest, &doc)...)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}

	var plan models.AnimationPlan
	if err := json.Unmarshal([]byte(doc), &plan); err != nil {
		return nil, fmt.Errorf("decoding plan %s: %w", id, err)
	}
	return &models.StoredPlan{PlanInfo: *info, Plan: &plan}, nil
}

// List returns the most recent plans. A non-positive limit returns all of them.
func (ds *DuckStore) List(limit int) ([]*models.PlanInfo, error) {
	query := `SELECT ` + planColumns + ` FROM plans ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := ds.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	list := make([]*models.PlanInfo, 0)
	for rows.Next() {
		info, err := scanInfo(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		list = append(list, info)
	}
	return list, rows.Err()
}

// Delete removes a plan.
func (ds *DuckStore) Delete(id string) error {
	res, err := ds.db.Exec(`DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Rename updates the display title of a plan.
func (ds *DuckStore) Rename(id string, newTitle string) (*models.PlanInfo, error) {
	res, err := ds.db.Exec(`UPDATE plans SET title = ? WHERE id = ?`, newTitle, id)
	if err != nil {
		return nil, fmt.Errorf("renaming plan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	row := ds.db.QueryRow(`SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	info, err := scanInfo(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	return info, nil
}

// LogGeneration appends one generation request to the log.
func (ds *DuckStore) LogGeneration(rec models.GenerationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := ds.db.Exec(`
		INSERT INTO generations (id, prompt, num_steps, plan_id, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Prompt, rec.NumSteps, rec.PlanID, rec.Error, rec.DurationMs, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("logging generation: %w", err)
	}
	return nil
}

// ListGenerations returns the most recent generation requests.
func (ds *DuckStore) ListGenerations(limit int) ([]models.GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ds.db.Query(`
		SELECT id, prompt, num_steps, COALESCE(plan_id, ''), COALESCE(error, ''), duration_ms, created_at
		FROM generations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	defer rows.Close()

	out := make([]models.GenerationRecord, 0)
	for rows.Next() {
		var rec models.GenerationRecord
		if err := rows.Scan(&rec.ID, &rec.Prompt, &rec.NumSteps, &rec.PlanID, &rec.Error, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats reports table sizes for the health endpoint.
func (ds *DuckStore) Stats() map[string]interface{} {
	var plans, generations int
	ds.db.QueryRow(`SELECT COUNT(*) FROM plans`).Scan(&plans)
	ds.db.QueryRow(`SELECT COUNT(*) FROM generations`).Scan(&generations)
	return map[string]interface{}{
		"backend":     "duckdb",
		"path":        ds.dbPath,
		"plans":       plans,
		"generations": generations,
	}
}

// Close closes the database.
func (ds *DuckStore) Close() error {
	if ds.db == nil {
		return nil
	}
	fmt.Printf("[DuckStore] Closing %q\n", ds.dbPath)
	return ds.db.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var (
	_ Store         = (*DuckStore)(nil)
	_ GenerationLog = (*DuckStore)(nil)
)
