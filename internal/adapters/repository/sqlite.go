package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // cgo-free sqlite driver

	"github.com/okian/tally/internal/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	email  TEXT NOT NULL UNIQUE COLLATE NOCASE,
	roles  TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS results (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	result  INTEGER NOT NULL,
	time    TEXT NOT NULL,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_results_user ON results(user_id);
`

// sortColumns maps normalized sort fields to columns. Only values coming
// out of NormalizeSort may be interpolated into a query.
var sortColumns = map[string]string{
	"id":     "r.id",
	"time":   "r.time",
	"result": "r.result",
}

// SQLiteStore is the durable Store backed by an embedded sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const resultSelect = `
SELECT r.id, r.result, r.time, u.id, u.email, u.roles
FROM results r JOIN users u ON u.id = r.user_id`

// FindByID implements Store.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (model.Result, error) {
	row := s.db.QueryRowContext(ctx, resultSelect+" WHERE r.id = ?", id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Result{}, ErrResultNotFound
	}
	return r, err
}

// FindAllSorted implements Store.
func (s *SQLiteStore) FindAllSorted(ctx context.Context, field, order string) ([]model.Result, error) {
	field, order = NormalizeSort(field, order)
	q := fmt.Sprintf("%s ORDER BY %s %s, r.id ASC", resultSelect, sortColumns[field], order)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return collectResults(rows)
}

// FindOwnedBySorted implements Store.
func (s *SQLiteStore) FindOwnedBySorted(ctx context.Context, ownerEmail, field, order string) ([]model.Result, error) {
	field, order = NormalizeSort(field, order)
	q := fmt.Sprintf("%s WHERE lower(u.email) = lower(?) ORDER BY %s %s, r.id ASC",
		resultSelect, sortColumns[field], order)
	rows, err := s.db.QueryContext(ctx, q, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("query owned results: %w", err)
	}
	return collectResults(rows)
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, r *model.Result) error {
	ts := r.Time.Format(model.TimeLayout)
	if r.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO results (result, time, user_id) VALUES (?, ?, ?)`,
			r.Score, ts, r.User.ID)
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert result id: %w", err)
		}
		r.ID = id
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE results SET result = ?, time = ?, user_id = ? WHERE id = ?`,
		r.Score, ts, r.User.ID, r.ID)
	if err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResultNotFound
	}
	return nil
}

// Remove implements Store.
func (s *SQLiteStore) Remove(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResultNotFound
	}
	return nil
}

// FindUserByEmail implements Store.
func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, roles FROM users WHERE lower(email) = lower(?)`, email)
	return scanUser(row)
}

// FindUserByID implements Store.
func (s *SQLiteStore) FindUserByID(ctx context.Context, id int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, roles FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// FindUsersSorted implements Store.
func (s *SQLiteStore) FindUsersSorted(ctx context.Context, field string) ([]model.User, error) {
	col := NormalizeUserSort(field)
	if col == "email" {
		col = "lower(email)"
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, email, roles FROM users ORDER BY %s ASC`, col))
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AddUser implements Store.
func (s *SQLiteStore) AddUser(ctx context.Context, u *model.User) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, roles) VALUES (?, ?)
		 ON CONFLICT(email) DO UPDATE SET roles = excluded.roles`,
		u.Email, string(roles)); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	// LastInsertId is unreliable on upsert; read the row back instead.
	stored, err := s.FindUserByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	u.ID = stored.ID
	return nil
}

// CountResults implements Store.
func (s *SQLiteStore) CountResults(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0
	}
	return n
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (model.Result, error) {
	var (
		r     model.Result
		ts    string
		roles string
	)
	if err := row.Scan(&r.ID, &r.Score, &ts, &r.User.ID, &r.User.Email, &roles); err != nil {
		return model.Result{}, err
	}
	t, err := time.ParseInLocation(model.TimeLayout, ts, time.Local)
	if err != nil {
		return model.Result{}, fmt.Errorf("stored time %q: %w", ts, err)
	}
	r.Time = t
	if err := json.Unmarshal([]byte(roles), &r.User.Roles); err != nil {
		return model.Result{}, fmt.Errorf("stored roles %q: %w", roles, err)
	}
	return r, nil
}

func collectResults(rows *sql.Rows) ([]model.Result, error) {
	defer rows.Close()
	var out []model.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanUser(row scanner) (model.User, error) {
	var (
		u     model.User
		roles string
	)
	if err := row.Scan(&u.ID, &u.Email, &roles); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	if err := json.Unmarshal([]byte(roles), &u.Roles); err != nil {
		return model.User{}, fmt.Errorf("stored roles %q: %w", roles, err)
	}
	return u, nil
}
