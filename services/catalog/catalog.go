// Package catalog wraps the remote content API. The remote side is a
// stock WordPress JSON API; the primary and mirror hosts serve the
// same data and are interchangeable.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"gamesleech-bot/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/antzucaro/matchr"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/catalog")

// ErrUnavailable reports that the API could not be reached (network
// failure, timeout or non-2xx) on every attempted endpoint. It is
// distinct from an empty result list, which is not an error.
var ErrUnavailable = errors.New("content api unavailable")

var ErrNotFound = errors.New("post not found")

type Rendered struct {
	Rendered string `json:"rendered"`
}

// Post is the raw record returned by the API, immutable once fetched.
type Post struct {
	Id      int64    `json:"id"`
	Date    string   `json:"date"`
	Link    string   `json:"link"`
	Title   Rendered `json:"title"`
	Content Rendered `json:"content"`
}

type Options struct {
	// primary API root, e.g. https://example.com/wp-json/wp/v2
	BaseUrl string
	// optional mirror tried when the primary comes up empty
	MirrorUrl string
	Timeout   time.Duration
	// minimum spacing between outbound requests, shared across all
	// callers; defaults to one second
	MinInterval time.Duration
}

type Client struct {
	http      *resty.Client
	baseUrl   string
	mirrorUrl string
	gate      *gate
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 15
	}
	interval := opts.MinInterval
	if interval == 0 {
		interval = time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader("user-agent", pickUserAgent())
		return nil
	})

	telemetry.InstrumentResty(client, "catalog/http")

	return &Client{
		http:      client,
		baseUrl:   strings.TrimSuffix(opts.BaseUrl, "/"),
		mirrorUrl: strings.TrimSuffix(opts.MirrorUrl, "/"),
		gate:      &gate{interval: interval},
	}
}

func (c *Client) fetchPosts(ctx context.Context, root string, params map[string]string) ([]Post, error) {
	if err := c.gate.wait(ctx); err != nil {
		return nil, err
	}

	posts := []Post{}
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&posts).
		Get(root + "/posts")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, res.StatusCode())
	}
	return posts, nil
}

// Search runs the query through a fallback chain: the primary
// endpoint, the mirror, each sufficiently long word of a long query,
// and finally the query with punctuation stripped. The first non-empty
// result list wins. An empty list after all attempts is not an error;
// ErrUnavailable is returned only when every attempt failed at the
// transport level.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Post, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	params := func(q string) map[string]string {
		return map[string]string{
			"search":   q,
			"per_page": fmt.Sprintf("%d", limit),
		}
	}

	reachable := false

	posts, err := c.fetchPosts(ctx, c.baseUrl, params(query))
	if err == nil {
		reachable = true
		if len(posts) > 0 {
			return posts, nil
		}
	}

	if c.mirrorUrl != "" {
		posts, err = c.fetchPosts(ctx, c.mirrorUrl, params(query))
		if err == nil {
			reachable = true
			if len(posts) > 0 {
				return posts, nil
			}
		}
	}

	if len(query) > 5 {
		for _, word := range strings.Fields(query) {
			if len(word) <= 3 {
				continue
			}
			posts, err = c.fetchPosts(ctx, c.baseUrl, params(word))
			if err == nil {
				reachable = true
				if len(posts) > 0 {
					return rankByRelevance(posts, query), nil
				}
			}
		}
	}

	stripped := stripPunctuation(query)
	if stripped != query && stripped != "" {
		posts, err = c.fetchPosts(ctx, c.baseUrl, params(stripped))
		if err == nil {
			reachable = true
			if len(posts) > 0 {
				return posts, nil
			}
		}
	}

	if !reachable {
		span.RecordError(err)
		span.SetStatus(codes.Error, "all endpoints unreachable")
		return nil, fmt.Errorf("search %q: %w", query, ErrUnavailable)
	}
	return []Post{}, nil
}

func (c *Client) Get(ctx context.Context, id int64) (Post, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()
	span.SetAttributes(attribute.Int64("id", id))

	if err := c.gate.wait(ctx); err != nil {
		return Post{}, err
	}

	var post Post
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&post).
		Get(fmt.Sprintf("%s/posts/%d", c.baseUrl, id))
	if err != nil {
		return Post{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.StatusCode() == 404 {
		return Post{}, ErrNotFound
	}
	if res.IsError() {
		return Post{}, fmt.Errorf("%w: status %d", ErrUnavailable, res.StatusCode())
	}
	return post, nil
}

func (c *Client) Latest(ctx context.Context, limit int) ([]Post, error) {
	ctx, span := tracer.Start(ctx, "Latest")
	defer span.End()

	return c.fetchPosts(ctx, c.baseUrl, map[string]string{
		"per_page": fmt.Sprintf("%d", limit),
		"orderby":  "date",
		"order":    "desc",
	})
}

func (c *Client) ByCategory(ctx context.Context, categoryId int64, limit int) ([]Post, error) {
	ctx, span := tracer.Start(ctx, "ByCategory")
	defer span.End()
	span.SetAttributes(attribute.Int64("category", categoryId))

	return c.fetchPosts(ctx, c.baseUrl, map[string]string{
		"categories": fmt.Sprintf("%d", categoryId),
		"per_page":   fmt.Sprintf("%d", limit),
		"orderby":    "date",
		"order":      "desc",
	})
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

func stripPunctuation(query string) string {
	return strings.TrimSpace(punctuation.ReplaceAllString(query, ""))
}

// Per-word retries match on a single token, so the returned posts are
// re-ranked against the whole query before being handed back.
func rankByRelevance(posts []Post, query string) []Post {
	normalizedQuery := strings.ToLower(query)
	sort.SliceStable(posts, func(i, j int) bool {
		left := matchr.JaroWinkler(strings.ToLower(posts[i].Title.Rendered), normalizedQuery, false)
		right := matchr.JaroWinkler(strings.ToLower(posts[j].Title.Rendered), normalizedQuery, false)
		return left > right
	})
	return posts
}
