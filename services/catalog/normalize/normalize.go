// Package normalize turns the raw HTML payloads returned by the
// catalog API into displayable records. Upstream content is untrusted
// and highly irregular, so every extractor is total: on garbage input
// it falls back to a sentinel ("Unknown", "N/A", "") that callers can
// render as-is.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"gamesleech-bot/lib/htmlutil"
	"gamesleech-bot/services/catalog"
)

var (
	numericEntity = regexp.MustCompile(`&#\d+;`)
	namedEntity   = regexp.MustCompile(`&[a-z]+;`)
	downloadWord  = regexp.MustCompile(`(?i)^Download\s+`)

	parenYear = regexp.MustCompile(`\((\d{4})\)`)
	bareYear  = regexp.MustCompile(`\b(20\d{2})\b`)

	sizePattern = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(GB|MB|TB)`)

	driveQueryLink = regexp.MustCompile(`https?://drive\.google\.com/uc\?[^"'<>\s]+`)
	drivePathLink  = regexp.MustCompile(`https?://drive\.google\.com/file/d/[^"'<>\s/]+`)
	driveQueryId   = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	drivePathId    = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

	passwordPattern = regexp.MustCompile(`(?i)password[:\s]+([^\s<]+)`)
)

// ordered by priority, first match wins
var repackers = []string{
	"FitGirl", "DODI", "ElAmigos", "GOG", "CODEX", "PLAZA", "Scene",
}

func CleanTitle(raw string) string {
	if raw == "" {
		return "Unknown"
	}

	title := strings.ReplaceAll(raw, "&#8211;", "-")
	title = strings.ReplaceAll(title, "&amp;", "&")
	title = numericEntity.ReplaceAllString(title, "")
	title = namedEntity.ReplaceAllString(title, "")
	title = downloadWord.ReplaceAllString(title, "")

	title = strings.TrimSpace(title)
	if title == "" {
		return "Unknown"
	}
	return title
}

func Year(title string) string {
	groups := parenYear.FindStringSubmatch(title)
	if len(groups) == 2 {
		year, err := strconv.Atoi(groups[1])
		if err == nil && year >= 2000 && year <= 2030 {
			return groups[1]
		}
	}

	groups = bareYear.FindStringSubmatch(title)
	if len(groups) == 2 {
		return groups[1]
	}
	return "N/A"
}

func Size(content string) string {
	groups := sizePattern.FindStringSubmatch(content)
	if len(groups) == 3 {
		return groups[1] + " " + strings.ToUpper(groups[2])
	}
	return "N/A"
}

func Repacker(title string) string {
	lower := strings.ToLower(title)
	for _, r := range repackers {
		if strings.Contains(lower, strings.ToLower(r)) {
			return r
		}
	}
	return "Unknown"
}

// DriveLinks collects every Google Drive share link in the content,
// rewrites each into the canonical direct-download form and removes
// duplicates while preserving first-seen order. A matched link whose
// file id cannot be located passes through untouched.
func DriveLinks(content string) []string {
	raw := driveQueryLink.FindAllString(content, -1)
	raw = append(raw, drivePathLink.FindAllString(content, -1)...)

	clean := []string{}
	seen := map[string]bool{}
	for _, link := range raw {
		link = strings.ReplaceAll(link, "&amp;", "&")

		if groups := driveQueryId.FindStringSubmatch(link); len(groups) == 2 {
			link = directDownloadUrl(groups[1])
		} else if groups := drivePathId.FindStringSubmatch(link); len(groups) == 2 {
			link = directDownloadUrl(groups[1])
		}

		if seen[link] {
			continue
		}
		seen[link] = true
		clean = append(clean, link)
	}
	return clean
}

func directDownloadUrl(fileId string) string {
	return "https://drive.google.com/uc?export=download&id=" + fileId
}

func Password(content string) string {
	groups := passwordPattern.FindStringSubmatch(content)
	if len(groups) == 2 {
		return groups[1]
	}
	return "N/A"
}

func Poster(content string) string {
	src := htmlutil.FirstImageSrc(content)
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

// Excerpt returns the first maxRunes runes of the content's visible
// text.
func Excerpt(content string, maxRunes int) string {
	text := htmlutil.FragmentText(content)
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}

// GameRecord is the normalized view of a catalog post. It is built on
// demand and never mutated.
type GameRecord struct {
	Id         int64
	RawTitle   string
	Title      string
	Url        string
	Date       string
	Year       string
	Repacker   string
	Size       string
	Password   string
	Poster     string
	DriveLinks []string
	PartsCount int
}

func Record(post catalog.Post) GameRecord {
	links := DriveLinks(post.Content.Rendered)
	return GameRecord{
		Id:         post.Id,
		RawTitle:   post.Title.Rendered,
		Title:      CleanTitle(post.Title.Rendered),
		Url:        post.Link,
		Date:       post.Date,
		Year:       Year(post.Title.Rendered),
		Repacker:   Repacker(post.Title.Rendered),
		Size:       Size(post.Content.Rendered),
		Password:   Password(post.Content.Rendered),
		Poster:     Poster(post.Content.Rendered),
		DriveLinks: links,
		PartsCount: len(links),
	}
}

// Summary is the lightweight row shown in result lists.
type Summary struct {
	Id       int64
	Title    string
	Size     string
	Repacker string
	Date     string
}

func Summarize(post catalog.Post) Summary {
	date := post.Date
	if len(date) > 10 {
		date = date[:10]
	}
	return Summary{
		Id:       post.Id,
		Title:    CleanTitle(post.Title.Rendered),
		Size:     Size(post.Content.Rendered),
		Repacker: Repacker(post.Title.Rendered),
		Date:     date,
	}
}

func SummarizeAll(posts []catalog.Post) []Summary {
	out := make([]Summary, len(posts))
	for i, post := range posts {
		out[i] = Summarize(post)
	}
	return out
}
