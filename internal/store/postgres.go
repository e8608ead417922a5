package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patseev1987/todolist/internal/task"
)

// Postgres is a PostgreSQL-backed Store for shared or server installs.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := NewPostgres(pool)
	if err := s.EnsureTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return s, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureTables creates the tables if they don't exist.
func (s *Postgres) EnsureTables(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id         BIGINT PRIMARY KEY,
			uid        TEXT NOT NULL,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			group_name TEXT NOT NULL,
			status     TEXT NOT NULL,
			remind     BOOLEAN NOT NULL DEFAULT FALSE,
			due        TIMESTAMPTZ,
			created    TIMESTAMPTZ NOT NULL,
			updated    TIMESTAMPTZ NOT NULL,
			started    TIMESTAMPTZ,
			completed  TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_group ON tasks(group_name)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tab_items (
			name            TEXT PRIMARY KEY,
			selected_icon   TEXT NOT NULL,
			unselected_icon TEXT NOT NULL,
			slot            INTEGER NOT NULL DEFAULT 0
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alarms (
			alarm_key BIGINT PRIMARY KEY,
			fire_at   TIMESTAMPTZ NOT NULL,
			title     TEXT NOT NULL,
			content   TEXT NOT NULL DEFAULT '',
			task_uid  TEXT NOT NULL DEFAULT '',
			created   TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// InsertOrReplace assigns MAX(id)+1 to new tasks so identifiers follow the
// same rule as the SQLite store.
func (s *Postgres) InsertOrReplace(ctx context.Context, t *task.Task) (int64, error) {
	stamp(t, time.Now().Truncate(time.Microsecond))

	var id *int64
	if t.ID != 0 {
		id = &t.ID
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (COALESCE($1, (SELECT COALESCE(MAX(id), 0) + 1 FROM tasks)),
			$2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			uid = EXCLUDED.uid, title = EXCLUDED.title, content = EXCLUDED.content,
			group_name = EXCLUDED.group_name, status = EXCLUDED.status, remind = EXCLUDED.remind,
			due = EXCLUDED.due, created = EXCLUDED.created, updated = EXCLUDED.updated,
			started = EXCLUDED.started, completed = EXCLUDED.completed
		RETURNING id`,
		id, t.UID, t.Title, t.Content, t.Group, string(t.Status), t.Remind,
		t.Due, t.Created, t.Updated, t.Started, t.Completed).Scan(&t.ID)
	if err != nil {
		return 0, fmt.Errorf("saving task: %w", err)
	}
	return t.ID, nil
}

func (s *Postgres) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanPgTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *Postgres) LastID(ctx context.Context) (int64, error) {
	var last int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM tasks`).Scan(&last); err != nil {
		return 0, fmt.Errorf("reading last task id: %w", err)
	}
	return last, nil
}

func (s *Postgres) List(ctx context.Context, f Filter) ([]*task.Task, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Group != "" {
		where = append(where, "group_name = "+arg(f.Group))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.Remind {
		where = append(where, "remind")
	}
	if f.DueBefore != nil {
		where = append(where, "due < "+arg(*f.DueBefore))
	}
	if f.Search != "" {
		q := arg("%" + f.Search + "%")
		where = append(where, "(title ILIKE "+q+" OR content ILIKE "+q+")")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Postgres) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CountByGroup(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT group_name, COUNT(*) FROM tasks GROUP BY group_name`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

func (s *Postgres) PutTabItem(ctx context.Context, item task.TabItem) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tab_items (name, selected_icon, unselected_icon, slot)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			selected_icon = EXCLUDED.selected_icon,
			unselected_icon = EXCLUDED.unselected_icon,
			slot = EXCLUDED.slot`,
		item.Name, item.SelectedIcon, item.UnselectedIcon, item.Slot)
	if err != nil {
		return fmt.Errorf("saving group %s: %w", item.Name, err)
	}
	return nil
}

func (s *Postgres) TabItem(ctx context.Context, name string) (task.TabItem, error) {
	var item task.TabItem
	err := s.pool.QueryRow(ctx, `
		SELECT name, selected_icon, unselected_icon, slot FROM tab_items WHERE name = $1`, name).
		Scan(&item.Name, &item.SelectedIcon, &item.UnselectedIcon, &item.Slot)
	if errors.Is(err, pgx.ErrNoRows) {
		return task.TabItem{}, ErrNotFound
	}
	if err != nil {
		return task.TabItem{}, fmt.Errorf("get group %s: %w", name, err)
	}
	return item, nil
}

func (s *Postgres) TabItems(ctx context.Context) ([]task.TabItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, selected_icon, unselected_icon, slot FROM tab_items ORDER BY slot, name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var items []task.TabItem
	for rows.Next() {
		var item task.TabItem
		if err := rows.Scan(&item.Name, &item.SelectedIcon, &item.UnselectedIcon, &item.Slot); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Postgres) RenameTabItem(ctx context.Context, old string, item task.TabItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tab_items WHERE name = $1)`, old).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	if item.Name != old {
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tab_items WHERE name = $1)`, item.Name).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrGroupExists
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tab_items WHERE name = $1`, old); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO tab_items (name, selected_icon, unselected_icon, slot) VALUES ($1, $2, $3, $4)`,
		item.Name, item.SelectedIcon, item.UnselectedIcon, item.Slot); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE tasks SET group_name = $1 WHERE group_name = $2`, item.Name, old); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) DeleteTabItem(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tab_items WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete group %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) PutAlarm(ctx context.Context, a Alarm) error {
	if a.Created.IsZero() {
		a.Created = time.Now()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO alarms (alarm_key, fire_at, title, content, task_uid, created)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (alarm_key) DO NOTHING`,
		a.Key, a.FireAt, a.Title, a.Content, a.TaskUID, a.Created)
	if err != nil {
		return fmt.Errorf("registering alarm %d: %w", a.Key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlarmExists
	}
	return nil
}

func (s *Postgres) DeleteAlarm(ctx context.Context, key int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM alarms WHERE alarm_key = $1`, key); err != nil {
		return fmt.Errorf("cancelling alarm %d: %w", key, err)
	}
	return nil
}

func (s *Postgres) Alarm(ctx context.Context, key int64) (Alarm, error) {
	var a Alarm
	err := s.pool.QueryRow(ctx, `
		SELECT alarm_key, fire_at, title, content, task_uid, created FROM alarms WHERE alarm_key = $1`, key).
		Scan(&a.Key, &a.FireAt, &a.Title, &a.Content, &a.TaskUID, &a.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return Alarm{}, ErrNotFound
	}
	return a, err
}

func (s *Postgres) Alarms(ctx context.Context) ([]Alarm, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT alarm_key, fire_at, title, content, task_uid, created FROM alarms ORDER BY fire_at, alarm_key`)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var alarms []Alarm
	for rows.Next() {
		var a Alarm
		if err := rows.Scan(&a.Key, &a.FireAt, &a.Title, &a.Content, &a.TaskUID, &a.Created); err != nil {
			return nil, err
		}
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

func scanPgTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	var status string
	err := row.Scan(&t.ID, &t.UID, &t.Title, &t.Content, &t.Group, &status, &t.Remind,
		&t.Due, &t.Created, &t.Updated, &t.Started, &t.Completed)
	if err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	return &t, nil
}
