package bot

import (
	"context"
	"fmt"
	"log/slog"
)

func (s Service) handleAdmin(ctx context.Context, chatId int64, userId int64) {
	if !s.owners[userId] {
		s.send(ctx, chatId, "Not authorized!", nil)
		return
	}

	users, err := s.quota.AllUsers(ctx)
	if err != nil {
		slog.Error("failed to list users", "err", err)
		s.send(ctx, chatId, genericErrorText, nil)
		return
	}

	var totalSearches, totalDownloads, premium int64
	for _, u := range users {
		totalSearches += u.TotalSearches
		totalDownloads += u.Downloads
		if u.Premium != 0 {
			premium++
		}
	}

	s.send(ctx, chatId, fmt.Sprintf(`ADMIN PANEL

Users: %d (premium: %d)
Total searches: %d
Total downloads: %d

Commands:
/stats - your own statistics
/broadcast <text> - message all users`,
		len(users), premium, totalSearches, totalDownloads), nil)
}

func (s Service) handleStats(ctx context.Context, chatId int64, userId int64) {
	stats, err := s.quota.Stats(ctx, userId)
	if err != nil {
		slog.Error("failed to load stats", "user", userId, "err", err)
		s.send(ctx, chatId, genericErrorText, nil)
		return
	}

	plan := "free"
	if stats.Premium != 0 {
		plan = "premium"
	}
	s.send(ctx, chatId, fmt.Sprintf(`YOUR STATS

Plan: %s
Searches today: %d
Total searches: %d
Downloads: %d`,
		plan, stats.SearchesToday, stats.TotalSearches, stats.Downloads), nil)
}

func (s Service) handleBroadcast(ctx context.Context, chatId int64, userId int64, text string) {
	if !s.owners[userId] {
		s.send(ctx, chatId, "Not authorized!", nil)
		return
	}
	if text == "" {
		s.send(ctx, chatId, "Usage: /broadcast <text>", nil)
		return
	}

	users, err := s.quota.AllUsers(ctx)
	if err != nil {
		slog.Error("failed to list users", "err", err)
		s.send(ctx, chatId, genericErrorText, nil)
		return
	}

	sent := 0
	for _, u := range users {
		if _, err := s.gateway.SendMessage(ctx, u.ID, text, nil); err != nil {
			slog.Warn("broadcast delivery failed", "user", u.ID, "err", err)
			continue
		}
		sent++
	}
	s.send(ctx, chatId, fmt.Sprintf("Broadcast delivered to %d/%d users.", sent, len(users)), nil)
}
