package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type User struct {
	ID            int64
	Username      string
	Premium       int64
	TotalSearches int64
	SearchesToday int64
	LastResetDate string
	Downloads     int64
	FirstSeen     int64
}

const getUser = `
SELECT id, username, premium, total_searches, searches_today, last_reset_date, downloads, first_seen
FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Premium,
		&u.TotalSearches,
		&u.SearchesToday,
		&u.LastResetDate,
		&u.Downloads,
		&u.FirstSeen,
	)
	return u, err
}

type UpsertUserParams struct {
	ID        int64
	Username  string
	FirstSeen int64
}

const upsertUser = `
INSERT INTO users (id, username, first_seen)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET username = excluded.username
`

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) error {
	_, err := q.db.ExecContext(ctx, upsertUser, arg.ID, arg.Username, arg.FirstSeen)
	return err
}

type ResetDailyCountParams struct {
	LastResetDate string
	ID            int64
}

const resetDailyCount = `
UPDATE users SET searches_today = 0, last_reset_date = ? WHERE id = ?
`

func (q *Queries) ResetDailyCount(ctx context.Context, arg ResetDailyCountParams) error {
	_, err := q.db.ExecContext(ctx, resetDailyCount, arg.LastResetDate, arg.ID)
	return err
}

type IncrementSearchesParams struct {
	ID            int64
	LastResetDate string
	FirstSeen     int64
}

// The insert branch covers users whose row was never created; without
// it the UPDATE would match zero rows and the counter would be lost.
const incrementSearches = `
INSERT INTO users (id, total_searches, searches_today, last_reset_date, first_seen)
VALUES (?, 1, 1, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    total_searches = total_searches + 1,
    searches_today = searches_today + 1
`

func (q *Queries) IncrementSearches(ctx context.Context, arg IncrementSearchesParams) error {
	_, err := q.db.ExecContext(ctx, incrementSearches, arg.ID, arg.LastResetDate, arg.FirstSeen)
	return err
}

type IncrementDownloadsParams struct {
	ID        int64
	FirstSeen int64
}

const incrementDownloads = `
INSERT INTO users (id, downloads, first_seen)
VALUES (?, 1, ?)
ON CONFLICT (id) DO UPDATE SET downloads = downloads + 1
`

func (q *Queries) IncrementDownloads(ctx context.Context, arg IncrementDownloadsParams) error {
	_, err := q.db.ExecContext(ctx, incrementDownloads, arg.ID, arg.FirstSeen)
	return err
}

type SetPremiumParams struct {
	Premium int64
	ID      int64
}

const setPremium = `
UPDATE users SET premium = ? WHERE id = ?
`

func (q *Queries) SetPremium(ctx context.Context, arg SetPremiumParams) error {
	_, err := q.db.ExecContext(ctx, setPremium, arg.Premium, arg.ID)
	return err
}

type CreateSearchHistoryParams struct {
	UserID     int64
	Query      string
	SearchedAt int64
}

const createSearchHistory = `
INSERT INTO search_history (user_id, query, searched_at) VALUES (?, ?, ?)
`

func (q *Queries) CreateSearchHistory(ctx context.Context, arg CreateSearchHistoryParams) error {
	_, err := q.db.ExecContext(ctx, createSearchHistory, arg.UserID, arg.Query, arg.SearchedAt)
	return err
}

type TrimSearchHistoryParams struct {
	UserID int64
	Keep   int64
}

const trimSearchHistory = `
DELETE FROM search_history
WHERE user_id = ?1
  AND id NOT IN (
    SELECT id FROM search_history
    WHERE user_id = ?1
    ORDER BY id DESC
    LIMIT ?2
  )
`

func (q *Queries) TrimSearchHistory(ctx context.Context, arg TrimSearchHistoryParams) error {
	_, err := q.db.ExecContext(ctx, trimSearchHistory, arg.UserID, arg.Keep)
	return err
}

type SearchHistory struct {
	ID         int64
	UserID     int64
	Query      string
	SearchedAt int64
}

type GetSearchHistoryParams struct {
	UserID int64
	Limit  int64
}

const getSearchHistory = `
SELECT id, user_id, query, searched_at
FROM search_history
WHERE user_id = ?
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) GetSearchHistory(ctx context.Context, arg GetSearchHistoryParams) ([]SearchHistory, error) {
	rows, err := q.db.QueryContext(ctx, getSearchHistory, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SearchHistory
	for rows.Next() {
		var h SearchHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.Query, &h.SearchedAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

const listUsers = `
SELECT id, username, premium, total_searches, searches_today, last_reset_date, downloads, first_seen
FROM users ORDER BY id
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.Premium,
			&u.TotalSearches,
			&u.SearchesToday,
			&u.LastResetDate,
			&u.Downloads,
			&u.FirstSeen,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
