package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/taskdash/internal/app"
	"github.com/hylla/taskdash/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would get its own private database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS work_items (
			id TEXT PRIMARY KEY,
			section_type TEXT NOT NULL,
			group_name TEXT NOT NULL DEFAULT '',
			assignee TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			priority TEXT NOT NULL DEFAULT 'medium',
			due_at TEXT,
			fields_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS screen_configs (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_work_items_section_assignee ON work_items(section_type, assignee, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_work_items_group ON work_items(group_name, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// workItemColumns lists the work_items projection used by every read.
const workItemColumns = `id, section_type, group_name, assignee, title, status, priority, due_at, fields_json, created_at, updated_at`

// CreateWorkItem creates work item.
func (r *Repository) CreateWorkItem(ctx context.Context, item domain.WorkItem) error {
	fieldsJSON, err := encodeFields(item.Fields)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO work_items(id, section_type, group_name, assignee, title, status, priority, due_at, fields_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.SectionType, item.GroupName, item.Assignee, item.Title, string(item.Status), string(item.Priority),
		nullableTS(item.DueAt), fieldsJSON, ts(item.CreatedAt), ts(item.UpdatedAt))
	return err
}

// UpdateWorkItem updates state for the requested operation.
func (r *Repository) UpdateWorkItem(ctx context.Context, item domain.WorkItem) error {
	fieldsJSON, err := encodeFields(item.Fields)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE work_items
		SET section_type = ?, group_name = ?, assignee = ?, title = ?, status = ?, priority = ?, due_at = ?, fields_json = ?, updated_at = ?
		WHERE id = ?
	`, item.SectionType, item.GroupName, item.Assignee, item.Title, string(item.Status), string(item.Priority),
		nullableTS(item.DueAt), fieldsJSON, ts(item.UpdatedAt), item.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetWorkItem returns work item.
func (r *Repository) GetWorkItem(ctx context.Context, id string) (domain.WorkItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workItemColumns+` FROM work_items WHERE id = ?`, id)
	return scanWorkItem(row)
}

// ListWorkItemsBySection lists one section's items; a blank assignee lists every assignee.
func (r *Repository) ListWorkItemsBySection(ctx context.Context, sectionType, assignee string) ([]domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE section_type = ?`
	args := []any{sectionType}
	if strings.TrimSpace(assignee) != "" {
		query += ` AND assignee = ?`
		args = append(args, assignee)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	return r.listWorkItems(ctx, query, args...)
}

// ListWorkItemsByGroup lists one group's items across sections.
func (r *Repository) ListWorkItemsByGroup(ctx context.Context, group string) ([]domain.WorkItem, error) {
	return r.listWorkItems(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE group_name = ?
		ORDER BY created_at ASC, id ASC
	`, group)
}

// CountWorkItems counts stored work items.
func (r *Repository) CountWorkItems(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_items`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// PutScreenConfig stores one screen config, replacing any previous value.
func (r *Repository) PutScreenConfig(ctx context.Context, key, data string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO screen_configs(key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, key, data, ts(updatedAt))
	return err
}

// GetScreenConfig returns one screen config.
func (r *Repository) GetScreenConfig(ctx context.Context, key string) (string, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM screen_configs WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", app.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return data, nil
}

// listWorkItems runs one work-item query.
func (r *Repository) listWorkItems(ctx context.Context, query string, args ...any) ([]domain.WorkItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WorkItem, 0)
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanWorkItem handles scan work item.
func scanWorkItem(s scanner) (domain.WorkItem, error) {
	var (
		item       domain.WorkItem
		status     string
		priority   string
		dueRaw     sql.NullString
		fieldsRaw  string
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(
		&item.ID,
		&item.SectionType,
		&item.GroupName,
		&item.Assignee,
		&item.Title,
		&status,
		&priority,
		&dueRaw,
		&fieldsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WorkItem{}, app.ErrNotFound
		}
		return domain.WorkItem{}, err
	}
	item.Status = domain.Status(status)
	item.Priority = domain.Priority(priority)
	item.DueAt = parseNullTS(dueRaw)
	item.CreatedAt = parseTS(createdRaw)
	item.UpdatedAt = parseTS(updatedRaw)
	if strings.TrimSpace(fieldsRaw) == "" {
		fieldsRaw = "{}"
	}
	if err := json.Unmarshal([]byte(fieldsRaw), &item.Fields); err != nil {
		return domain.WorkItem{}, fmt.Errorf("decode fields_json: %w", err)
	}
	return item, nil
}

// encodeFields encodes free-form fields for storage.
func encodeFields(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields_json: %w", err)
	}
	return string(raw), nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}
