// Package bot glues the messaging gateway to the session machine,
// quota tracker and catalog client. Everything here is dispatch and
// formatting; the interesting state lives in the other services.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gamesleech-bot/lib/telegram"
	"gamesleech-bot/services/catalog"
	"gamesleech-bot/services/catalog/normalize"
	"gamesleech-bot/services/quota"
	"gamesleech-bot/services/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/bot")

// Gateway is the slice of the messaging API the bot needs; satisfied
// by *telegram.Client and by fakes in tests.
type Gateway interface {
	SendMessage(ctx context.Context, chatId int64, text string, keyboard *telegram.InlineKeyboardMarkup) (telegram.Message, error)
	SendPhoto(ctx context.Context, chatId int64, photoUrl string, caption string, keyboard *telegram.InlineKeyboardMarkup) (telegram.Message, error)
	EditMessage(ctx context.Context, chatId int64, messageId int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatId int64, messageId int64) error
	AnswerCallback(ctx context.Context, callbackId string, text string, showAlert bool) error
}

type Options struct {
	// user ids allowed to run admin commands
	Owners []int64
	// pause between the staged "preparing download" edits; tests set
	// it to zero
	PrepDelay time.Duration
}

type Service struct {
	gateway   Gateway
	machine   session.Machine
	quota     quota.Service
	catalog   session.Catalog
	owners    map[int64]bool
	prepDelay time.Duration
}

func NewService(gateway Gateway, machine session.Machine, quotaSvc quota.Service, cat session.Catalog, opts Options) Service {
	owners := map[int64]bool{}
	for _, id := range opts.Owners {
		owners[id] = true
	}
	prepDelay := opts.PrepDelay
	if prepDelay == 0 {
		prepDelay = time.Second
	}
	return Service{
		gateway:   gateway,
		machine:   machine,
		quota:     quotaSvc,
		catalog:   cat,
		owners:    owners,
		prepDelay: prepDelay,
	}
}

// HandleUpdate processes one inbound interaction to completion. No
// failure may escape: anything unexpected is reduced to a generic
// message and a log line.
func (s Service) HandleUpdate(ctx context.Context, update telegram.Update) {
	ctx, span := tracer.Start(ctx, "HandleUpdate")
	defer span.End()
	span.SetAttributes(attribute.Int64("update", update.UpdateId))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling update", "update", update.UpdateId, "panic", r)
		}
	}()

	switch {
	case update.Message != nil && update.Message.From != nil:
		s.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, update.CallbackQuery)
	}
}

func (s Service) handleMessage(ctx context.Context, msg *telegram.Message) {
	userId := msg.From.Id
	chatId := msg.Chat.Id
	text := strings.TrimSpace(msg.Text)

	if err := s.quota.TouchUser(ctx, userId, msg.From.Username); err != nil {
		slog.Error("failed to touch user", "user", userId, "err", err)
	}

	switch {
	// deep links arrive as "/start <payload>"
	case text == "/start" || strings.HasPrefix(text, "/start "):
		s.machine.Cancel(userId)
		s.send(ctx, chatId, welcomeText(msg.From.FirstName), homeKeyboard())
	case text == "/help":
		s.send(ctx, chatId, helpText, nil)
	case text == "/admin":
		s.handleAdmin(ctx, chatId, userId)
	case text == "/stats":
		s.handleStats(ctx, chatId, userId)
	case strings.HasPrefix(text, "/broadcast"):
		s.handleBroadcast(ctx, chatId, userId, strings.TrimSpace(strings.TrimPrefix(text, "/broadcast")))
	case isDigits(text):
		s.handleSelect(ctx, chatId, userId, text)
	case len(text) < 2:
		s.send(ctx, chatId, "Too short! Type at least 2 characters.", nil)
	default:
		s.handleSearch(ctx, chatId, userId, text)
	}
}

func (s Service) handleSearch(ctx context.Context, chatId int64, userId int64, query string) {
	progress, err := s.gateway.SendMessage(ctx, chatId, fmt.Sprintf("Searching: %s...", query), nil)
	if err != nil {
		slog.Error("failed to send progress message", "err", err)
		return
	}

	results, err := s.machine.Search(ctx, userId, query)

	var quotaErr session.QuotaError
	switch {
	case errors.As(err, &quotaErr):
		s.edit(ctx, chatId, progress.MessageId, quotaDeniedText(quotaErr.Decision), nil)
	case errors.Is(err, catalog.ErrUnavailable):
		// indistinguishable from "no results" for the user, but worth
		// telling apart in the logs
		slog.Error("content api unreachable", "query", query, "err", err)
		s.edit(ctx, chatId, progress.MessageId, noResultsText(query), nil)
	case err != nil:
		slog.Error("search failed", "query", query, "err", err)
		s.edit(ctx, chatId, progress.MessageId, genericErrorText, nil)
	case len(results) == 0:
		s.edit(ctx, chatId, progress.MessageId, noResultsText(query), nil)
	default:
		s.edit(ctx, chatId, progress.MessageId, searchResultsText(query, results), nil)
	}
}

func (s Service) handleSelect(ctx context.Context, chatId int64, userId int64, text string) {
	progress, err := s.gateway.SendMessage(ctx, chatId, "Loading game details...", nil)
	if err != nil {
		slog.Error("failed to send progress message", "err", err)
		return
	}

	record, err := s.machine.Select(ctx, userId, text)

	var rangeErr session.RangeError
	switch {
	case errors.Is(err, session.ErrNoActiveSearch):
		s.edit(ctx, chatId, progress.MessageId, "No active search!\n\nType a game name to search.", nil)
		return
	case errors.Is(err, session.ErrNotNumber):
		// digit strings too large for an int land here
		s.edit(ctx, chatId, progress.MessageId, "Invalid! Type a number from the results.", nil)
		return
	case errors.As(err, &rangeErr):
		s.edit(ctx, chatId, progress.MessageId, fmt.Sprintf("Invalid! Type 1-%d", rangeErr.Max), nil)
		return
	case err != nil:
		slog.Error("failed to load details", "user", userId, "err", err)
		s.edit(ctx, chatId, progress.MessageId, "Failed to load the game! Please try again.", nil)
		return
	}

	if err := s.gateway.DeleteMessage(ctx, chatId, progress.MessageId); err != nil {
		slog.Debug("failed to delete progress message", "err", err)
	}

	caption := detailCaption(*record)
	if record.Poster != "" {
		_, err := s.gateway.SendPhoto(ctx, chatId, record.Poster, caption, confirmKeyboard())
		if err == nil {
			return
		}
		slog.Debug("failed to send poster, falling back to text", "err", err)
	}
	s.send(ctx, chatId, caption, confirmKeyboard())
}

func (s Service) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	userId := cb.From.Id
	if cb.Message == nil {
		return
	}
	chatId := cb.Message.Chat.Id
	messageId := cb.Message.MessageId

	switch {
	case cb.Data == "confirm_download":
		s.handleConfirm(ctx, cb)
	case cb.Data == "cancel":
		s.machine.Cancel(userId)
		s.answer(ctx, cb.Id, "Cancelled!")
		if err := s.gateway.DeleteMessage(ctx, chatId, messageId); err != nil {
			slog.Debug("failed to delete message", "err", err)
		}
		s.send(ctx, chatId, "Cancelled!\n\nType a game name to search.", nil)
	case cb.Data == "back_home":
		s.machine.Cancel(userId)
		s.answer(ctx, cb.Id, "")
		s.edit(ctx, chatId, messageId, homeText, homeKeyboard())
	case cb.Data == "help":
		s.answer(ctx, cb.Id, "")
		s.edit(ctx, chatId, messageId, helpText, backKeyboard("back_home"))
	case cb.Data == "latest":
		s.answer(ctx, cb.Id, "")
		results, err := s.machine.Latest(ctx, userId)
		s.renderListing(ctx, chatId, messageId, "LATEST GAMES", results, err, "back_home")
	case cb.Data == "browse":
		s.answer(ctx, cb.Id, "")
		s.edit(ctx, chatId, messageId, "BROWSE GAMES\n\nSelect a category:", browseKeyboard())
	case strings.HasPrefix(cb.Data, "cat_"):
		s.answer(ctx, cb.Id, "")
		categoryId, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "cat_"), 10, 64)
		if err != nil {
			slog.Warn("bad category token", "data", cb.Data)
			return
		}
		name, _ := catalog.CategoryName(categoryId)
		results, listErr := s.machine.Browse(ctx, userId, categoryId)
		s.renderListing(ctx, chatId, messageId, listingTitle(name), results, listErr, "browse")
	}
}

func (s Service) renderListing(ctx context.Context, chatId int64, messageId int64, title string, results []normalize.Summary, err error, back string) {
	switch {
	case err != nil:
		slog.Error("failed to load listing", "title", title, "err", err)
		s.edit(ctx, chatId, messageId, genericErrorText, backKeyboard(back))
	case len(results) == 0:
		s.edit(ctx, chatId, messageId, "No games found here!", backKeyboard(back))
	default:
		s.edit(ctx, chatId, messageId, listingText(title, results), backKeyboard(back))
	}
}

func (s Service) handleConfirm(ctx context.Context, cb *telegram.CallbackQuery) {
	userId := cb.From.Id
	chatId := cb.Message.Chat.Id

	record, err := s.machine.Confirm(ctx, userId)
	if errors.Is(err, session.ErrSessionExpired) {
		s.answerAlert(ctx, cb.Id, "Session expired! Search again.")
		return
	}
	if err != nil {
		slog.Error("confirm failed", "user", userId, "err", err)
		s.answerAlert(ctx, cb.Id, genericErrorText)
		return
	}
	s.answer(ctx, cb.Id, "")

	if err := s.gateway.DeleteMessage(ctx, chatId, cb.Message.MessageId); err != nil {
		slog.Debug("failed to delete message", "err", err)
	}

	progress, err := s.gateway.SendMessage(ctx, chatId,
		fmt.Sprintf("Fetching download links...\n\n%s", record.Title), nil)
	if err == nil {
		time.Sleep(s.prepDelay)
		s.edit(ctx, chatId, progress.MessageId,
			fmt.Sprintf("Preparing Google Drive links...\n\n%s", record.Title), nil)
		time.Sleep(s.prepDelay)
		if err := s.gateway.DeleteMessage(ctx, chatId, progress.MessageId); err != nil {
			slog.Debug("failed to delete progress message", "err", err)
		}
	}

	if len(record.DriveLinks) == 0 {
		s.send(ctx, chatId, noLinksText(record), nil)
		return
	}

	caption := downloadCaption(record)
	keyboard := linkKeyboard(record)
	if record.Poster != "" {
		_, err := s.gateway.SendPhoto(ctx, chatId, record.Poster, caption, keyboard)
		if err == nil {
			return
		}
		slog.Debug("failed to send poster, falling back to text", "err", err)
	}
	s.send(ctx, chatId, caption, keyboard)
}

func (s Service) send(ctx context.Context, chatId int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if _, err := s.gateway.SendMessage(ctx, chatId, text, keyboard); err != nil {
		slog.Error("failed to send message", "chat", chatId, "err", err)
	}
}

func (s Service) edit(ctx context.Context, chatId int64, messageId int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if err := s.gateway.EditMessage(ctx, chatId, messageId, text, keyboard); err != nil {
		slog.Error("failed to edit message", "chat", chatId, "err", err)
	}
}

func (s Service) answer(ctx context.Context, callbackId string, text string) {
	if err := s.gateway.AnswerCallback(ctx, callbackId, text, false); err != nil {
		slog.Debug("failed to answer callback", "err", err)
	}
}

func (s Service) answerAlert(ctx context.Context, callbackId string, text string) {
	if err := s.gateway.AnswerCallback(ctx, callbackId, text, true); err != nil {
		slog.Debug("failed to answer callback", "err", err)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
