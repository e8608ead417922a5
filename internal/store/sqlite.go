package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/patseev1987/todolist/internal/task"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS tasks (
		id         INTEGER PRIMARY KEY,
		uid        TEXT NOT NULL,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		group_name TEXT NOT NULL,
		status     TEXT NOT NULL,
		remind     INTEGER NOT NULL DEFAULT 0,
		due        INTEGER,
		created    INTEGER NOT NULL,
		updated    INTEGER NOT NULL,
		started    INTEGER,
		completed  INTEGER
	);

	CREATE TABLE IF NOT EXISTS tab_items (
		name            TEXT PRIMARY KEY,
		selected_icon   TEXT NOT NULL,
		unselected_icon TEXT NOT NULL,
		slot            INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS alarms (
		alarm_key INTEGER PRIMARY KEY,
		fire_at   INTEGER NOT NULL,
		title     TEXT NOT NULL,
		content   TEXT NOT NULL DEFAULT '',
		task_uid  TEXT NOT NULL DEFAULT '',
		created   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_group ON tasks(group_name);
	CREATE INDEX IF NOT EXISTS idx_alarms_fire_at ON alarms(fire_at);
`

const taskColumns = `id, uid, title, content, group_name, status, remind, due, created, updated, started, completed`

// SQLite is the default Store, one database file in the data directory.
// Times are stored as Unix nanoseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(sqliteSchema)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) InsertOrReplace(ctx context.Context, t *task.Task) (int64, error) {
	stamp(t, time.Now())

	var id any
	if t.ID != 0 {
		id = t.ID
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.UID, t.Title, t.Content, t.Group, string(t.Status), t.Remind,
		nanos(t.Due), t.Created.UnixNano(), t.Updated.UnixNano(), nanos(t.Started), nanos(t.Completed))
	if err != nil {
		return 0, fmt.Errorf("saving task: %w", err)
	}
	if t.ID == 0 {
		if t.ID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("reading assigned task id: %w", err)
		}
	}
	return t.ID, nil
}

func (s *SQLite) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *SQLite) LastID(ctx context.Context) (int64, error) {
	var last int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM tasks`).Scan(&last); err != nil {
		return 0, fmt.Errorf("reading last task id: %w", err)
	}
	return last, nil
}

func (s *SQLite) List(ctx context.Context, f Filter) ([]*task.Task, error) {
	var where []string
	var args []any
	if f.Group != "" {
		where = append(where, "group_name = ?")
		args = append(args, f.Group)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Remind {
		where = append(where, "remind = 1")
	}
	if f.DueBefore != nil {
		where = append(where, "due IS NOT NULL AND due < ?")
		args = append(args, f.DueBefore.UnixNano())
	}
	if f.Search != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)")
		q := "%" + strings.ToLower(f.Search) + "%"
		args = append(args, q, q)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return requireAffected(res)
}

func (s *SQLite) CountByGroup(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT group_name, COUNT(*) FROM tasks GROUP BY group_name`)
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

func (s *SQLite) PutTabItem(ctx context.Context, item task.TabItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO tab_items (name, selected_icon, unselected_icon, slot)
		VALUES (?, ?, ?, ?)`,
		item.Name, item.SelectedIcon, item.UnselectedIcon, item.Slot)
	if err != nil {
		return fmt.Errorf("saving group %s: %w", item.Name, err)
	}
	return nil
}

func (s *SQLite) TabItem(ctx context.Context, name string) (task.TabItem, error) {
	var item task.TabItem
	err := s.db.QueryRowContext(ctx, `
		SELECT name, selected_icon, unselected_icon, slot FROM tab_items WHERE name = ?`, name).
		Scan(&item.Name, &item.SelectedIcon, &item.UnselectedIcon, &item.Slot)
	if errors.Is(err, sql.ErrNoRows) {
		return task.TabItem{}, ErrNotFound
	}
	if err != nil {
		return task.TabItem{}, fmt.Errorf("get group %s: %w", name, err)
	}
	return item, nil
}

func (s *SQLite) TabItems(ctx context.Context) ([]task.TabItem, error) {
	rows, err := s.db.QueryContext(ctx, `
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

func (s *SQLite) RenameTabItem(ctx context.Context, old string, item task.TabItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tab_items WHERE name = ?`, old).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	if item.Name != old {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tab_items WHERE name = ?`, item.Name).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return ErrGroupExists
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tab_items WHERE name = ?`, old); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tab_items (name, selected_icon, unselected_icon, slot) VALUES (?, ?, ?, ?)`,
		item.Name, item.SelectedIcon, item.UnselectedIcon, item.Slot); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET group_name = ? WHERE group_name = ?`, item.Name, old); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) DeleteTabItem(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tab_items WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete group %s: %w", name, err)
	}
	return requireAffected(res)
}

func (s *SQLite) PutAlarm(ctx context.Context, a Alarm) error {
	if a.Created.IsZero() {
		a.Created = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alarms (alarm_key, fire_at, title, content, task_uid, created)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(alarm_key) DO NOTHING`,
		a.Key, a.FireAt.UnixNano(), a.Title, a.Content, a.TaskUID, a.Created.UnixNano())
	if err != nil {
		return fmt.Errorf("registering alarm %d: %w", a.Key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlarmExists
	}
	return nil
}

func (s *SQLite) DeleteAlarm(ctx context.Context, key int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alarms WHERE alarm_key = ?`, key); err != nil {
		return fmt.Errorf("cancelling alarm %d: %w", key, err)
	}
	return nil
}

func (s *SQLite) Alarm(ctx context.Context, key int64) (Alarm, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT alarm_key, fire_at, title, content, task_uid, created FROM alarms WHERE alarm_key = ?`, key)
	a, err := scanSQLiteAlarm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Alarm{}, ErrNotFound
	}
	return a, err
}

func (s *SQLite) Alarms(ctx context.Context) ([]Alarm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alarm_key, fire_at, title, content, task_uid, created FROM alarms ORDER BY fire_at, alarm_key`)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var alarms []Alarm
	for rows.Next() {
		a, err := scanSQLiteAlarm(rows)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (*task.Task, error) {
	var t task.Task
	var status string
	var due, started, completed sql.NullInt64
	var created, updated int64
	err := row.Scan(&t.ID, &t.UID, &t.Title, &t.Content, &t.Group, &status, &t.Remind,
		&due, &created, &updated, &started, &completed)
	if err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.Due = fromNanos(due)
	t.Created = time.Unix(0, created)
	t.Updated = time.Unix(0, updated)
	t.Started = fromNanos(started)
	t.Completed = fromNanos(completed)
	return &t, nil
}

func scanSQLiteAlarm(row rowScanner) (Alarm, error) {
	var a Alarm
	var fireAt, created int64
	if err := row.Scan(&a.Key, &fireAt, &a.Title, &a.Content, &a.TaskUID, &created); err != nil {
		return Alarm{}, err
	}
	a.FireAt = time.Unix(0, fireAt)
	a.Created = time.Unix(0, created)
	return a, nil
}

func nanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func fromNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64)
	return &t
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
