// Package quota meters free users to a fixed number of searches per
// calendar day. Counters live in sqlite; the daily counter rolls over
// lazily the first time a user is checked on a new date.
package quota

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gamesleech-bot/services/quota/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/quota")

// Remaining value reported for premium users.
const Unlimited = -1

const historyCap = 100

type Decision struct {
	Allowed   bool
	Unlimited bool
	// searches left today, Unlimited for premium users
	Remaining int
	// when the daily counter next resets
	ResetAt time.Time
}

type Options struct {
	// free searches per day, defaults to 5
	DailyLimit int
	// clock override for tests
	Now func() time.Time
}

type Service struct {
	db    *sql.DB
	qry   *db.Queries
	limit int
	now   func() time.Time
}

func NewService(database *sql.DB, opts Options) Service {
	limit := opts.DailyLimit
	if limit <= 0 {
		limit = 5
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return Service{
		db:    database,
		qry:   db.New(database),
		limit: limit,
		now:   now,
	}
}

// Check reports whether the user may run another search today. The
// lazy daily reset is idempotent: once last_reset_date matches today,
// repeated checks are read-only.
func (s Service) Check(ctx context.Context, userId int64) (Decision, error) {
	ctx, span := tracer.Start(ctx, "Check")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", userId))

	now := s.now()
	today := now.Format(time.DateOnly)
	resetAt := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

	user, err := s.qry.GetUser(ctx, userId)
	if errors.Is(err, sql.ErrNoRows) {
		// first interaction, full allowance
		return Decision{Allowed: true, Remaining: s.limit, ResetAt: resetAt}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, err
	}

	if user.Premium != 0 {
		return Decision{Allowed: true, Unlimited: true, Remaining: Unlimited, ResetAt: resetAt}, nil
	}

	if user.LastResetDate < today {
		err := s.qry.ResetDailyCount(ctx, db.ResetDailyCountParams{
			LastResetDate: today,
			ID:            userId,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Decision{}, err
		}
		user.SearchesToday = 0
	}

	remaining := s.limit - int(user.SearchesToday)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   int(user.SearchesToday) < s.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// RecordSearch bumps the daily and lifetime counters and appends to
// the user's search history, keeping only the most recent entries.
// The user row is created on first use, so the daily ceiling holds
// even when nothing upserted the user beforehand. Callers are
// expected to have obtained a permit from Check first.
func (s Service) RecordSearch(ctx context.Context, userId int64, query string) error {
	ctx, span := tracer.Start(ctx, "RecordSearch")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", userId))

	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.IncrementSearches(ctx, db.IncrementSearchesParams{
		ID:            userId,
		LastResetDate: now.Format(time.DateOnly),
		FirstSeen:     now.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	err = txqry.CreateSearchHistory(ctx, db.CreateSearchHistoryParams{
		UserID:     userId,
		Query:      query,
		SearchedAt: now.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	err = txqry.TrimSearchHistory(ctx, db.TrimSearchHistoryParams{
		UserID: userId,
		Keep:   historyCap,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return tx.Commit()
}

func (s Service) RecordDownload(ctx context.Context, userId int64) error {
	ctx, span := tracer.Start(ctx, "RecordDownload")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", userId))

	return s.qry.IncrementDownloads(ctx, db.IncrementDownloadsParams{
		ID:        userId,
		FirstSeen: s.now().Unix(),
	})
}

// TouchUser makes sure a row exists for the user, refreshing the
// stored username. Called on every inbound interaction.
func (s Service) TouchUser(ctx context.Context, userId int64, username string) error {
	return s.qry.UpsertUser(ctx, db.UpsertUserParams{
		ID:        userId,
		Username:  username,
		FirstSeen: s.now().Unix(),
	})
}

func (s Service) SetPremium(ctx context.Context, userId int64, premium bool) error {
	var flag int64
	if premium {
		flag = 1
	}
	return s.qry.SetPremium(ctx, db.SetPremiumParams{
		Premium: flag,
		ID:      userId,
	})
}

func (s Service) Stats(ctx context.Context, userId int64) (db.User, error) {
	return s.qry.GetUser(ctx, userId)
}

func (s Service) History(ctx context.Context, userId int64, limit int) ([]db.SearchHistory, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}
	return s.qry.GetSearchHistory(ctx, db.GetSearchHistoryParams{
		UserID: userId,
		Limit:  int64(limit),
	})
}

func (s Service) AllUsers(ctx context.Context) ([]db.User, error) {
	return s.qry.ListUsers(ctx)
}
