package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gamesleech-bot/services/catalog"
	"gamesleech-bot/services/catalog/normalize"
	"gamesleech-bot/services/quota"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/session")

var (
	ErrNoActiveSearch = errors.New("no active search")
	ErrNotNumber      = errors.New("selection is not a number")
	ErrSessionExpired = errors.New("session expired")
)

// RangeError reports a numeric selection outside the stored result
// list. The session is left untouched.
type RangeError struct {
	Max int
}

func (e RangeError) Error() string {
	return fmt.Sprintf("selection out of range, pick 1-%d", e.Max)
}

// QuotaError carries the denial so callers can render the remaining
// time until reset.
type QuotaError struct {
	Decision quota.Decision
}

func (e QuotaError) Error() string {
	return "daily search quota exceeded"
}

type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Post, error)
	Get(ctx context.Context, id int64) (catalog.Post, error)
	Latest(ctx context.Context, limit int) ([]catalog.Post, error)
	ByCategory(ctx context.Context, categoryId int64, limit int) ([]catalog.Post, error)
}

type Quota interface {
	Check(ctx context.Context, userId int64) (quota.Decision, error)
	RecordSearch(ctx context.Context, userId int64, query string) error
	RecordDownload(ctx context.Context, userId int64) error
}

type Machine struct {
	store       Store
	catalog     Catalog
	quota       Quota
	resultLimit int
}

func NewMachine(store Store, cat Catalog, q Quota, resultLimit int) Machine {
	if resultLimit <= 0 {
		resultLimit = 8
	}
	return Machine{
		store:       store,
		catalog:     cat,
		quota:       q,
		resultLimit: resultLimit,
	}
}

// Search runs a quota-gated catalog search and, when it finds
// anything, replaces whatever the user's session held before
// (an implicit cancel-and-restart).
func (m Machine) Search(ctx context.Context, userId int64, query string) ([]normalize.Summary, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", userId), attribute.String("query", query))

	decision, err := m.quota.Check(ctx, userId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !decision.Allowed {
		return nil, QuotaError{Decision: decision}
	}

	posts, err := m.catalog.Search(ctx, query, m.resultLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := m.quota.RecordSearch(ctx, userId, query); err != nil {
		// counters are best-effort bookkeeping, the search succeeded
		slog.Error("failed to record search", "user", userId, "err", err)
	}

	if len(posts) == 0 {
		m.store.Delete(userId)
		return []normalize.Summary{}, nil
	}

	summaries := normalize.SummarizeAll(posts)
	m.store.Put(userId, Session{
		Phase:   PhaseSelecting,
		Query:   query,
		Results: summaries,
	})
	return summaries, nil
}

// Latest and Browse store a result set without being quota-gated;
// listings are cheap for the upstream API and were never metered.
func (m Machine) Latest(ctx context.Context, userId int64) ([]normalize.Summary, error) {
	ctx, span := tracer.Start(ctx, "Latest")
	defer span.End()

	posts, err := m.catalog.Latest(ctx, m.resultLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return m.storeListing(userId, posts), nil
}

func (m Machine) Browse(ctx context.Context, userId int64, categoryId int64) ([]normalize.Summary, error) {
	ctx, span := tracer.Start(ctx, "Browse")
	defer span.End()
	span.SetAttributes(attribute.Int64("category", categoryId))

	posts, err := m.catalog.ByCategory(ctx, categoryId, m.resultLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return m.storeListing(userId, posts), nil
}

func (m Machine) storeListing(userId int64, posts []catalog.Post) []normalize.Summary {
	if len(posts) == 0 {
		m.store.Delete(userId)
		return []normalize.Summary{}
	}
	summaries := normalize.SummarizeAll(posts)
	m.store.Put(userId, Session{
		Phase:   PhaseSelecting,
		Results: summaries,
	})
	return summaries
}

// Select resolves a 1-based position in the stored result list,
// fetches the full post and moves the session to the confirmation
// phase. Bad input never changes state.
func (m Machine) Select(ctx context.Context, userId int64, input string) (*normalize.GameRecord, error) {
	ctx, span := tracer.Start(ctx, "Select")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", userId))

	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return nil, ErrNotNumber
	}

	sess, ok := m.store.Get(userId)
	if !ok || len(sess.Results) == 0 {
		return nil, ErrNoActiveSearch
	}
	if n < 1 || n > len(sess.Results) {
		return nil, RangeError{Max: len(sess.Results)}
	}

	post, err := m.catalog.Get(ctx, sess.Results[n-1].Id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	record := normalize.Record(post)
	sess.Phase = PhaseConfirming
	sess.Selected = &record
	m.store.Put(userId, sess)
	return &record, nil
}

// Confirm hands back the selected record and ends the session.
func (m Machine) Confirm(ctx context.Context, userId int64) (normalize.GameRecord, error) {
	ctx, span := tracer.Start(ctx, "Confirm")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", userId))

	sess, ok := m.store.Get(userId)
	if !ok || sess.Phase != PhaseConfirming || sess.Selected == nil {
		return normalize.GameRecord{}, ErrSessionExpired
	}

	record := *sess.Selected
	m.store.Delete(userId)

	if err := m.quota.RecordDownload(ctx, userId); err != nil {
		slog.Error("failed to record download", "user", userId, "err", err)
	}
	return record, nil
}

func (m Machine) Cancel(userId int64) {
	m.store.Delete(userId)
}

// Phase reports the user's current interaction phase.
func (m Machine) Phase(userId int64) Phase {
	sess, ok := m.store.Get(userId)
	if !ok {
		return PhaseIdle
	}
	return sess.Phase
}
