package bot

import (
	"log/slog"
	"net/http"
	"time"

	"gamesleech-bot/services/catalog/normalize"

	"github.com/gorilla/feeds"
)

// FeedHandler serves an RSS feed of the latest catalog entries on the
// admin HTTP port.
func (s Service) FeedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := s.catalog.Latest(r.Context(), 10)
		if err != nil {
			slog.Error("failed to build feed", "err", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}

		feed := &feeds.Feed{
			Title:       "GamesLeech - Latest Games",
			Link:        &feeds.Link{Href: "/feed.xml"},
			Description: "Most recent entries in the content catalog",
			Created:     time.Now(),
		}

		for _, post := range posts {
			record := normalize.Summarize(post)
			published, err := time.Parse("2006-01-02T15:04:05", post.Date)
			if err != nil {
				published = time.Now()
			}
			feed.Items = append(feed.Items, &feeds.Item{
				Id:          post.Link,
				Title:       record.Title,
				Link:        &feeds.Link{Href: post.Link},
				Description: record.Size + " | " + record.Repacker,
				Created:     published,
			})
		}

		rss, err := feed.ToRss()
		if err != nil {
			slog.Error("failed to render feed", "err", err)
			http.Error(w, "feed rendering failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Write([]byte(rss))
	}
}
