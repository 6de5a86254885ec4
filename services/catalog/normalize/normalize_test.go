package normalize

import (
	"testing"

	"gamesleech-bot/services/catalog"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCleanTitle(t *testing.T) {
	require.Equal(t, "Unknown", CleanTitle(""))
	require.Equal(t, "Unknown", CleanTitle("   "))

	// only the leading Download token is stripped
	require.Equal(t, "Grand Theft Auto V", CleanTitle("Download Grand Theft Auto V"))
	require.Equal(t, "Grand Theft Auto V", CleanTitle("DOWNLOAD Grand Theft Auto V"))
	require.Equal(t, "How To Download Games", CleanTitle("How To Download Games"))

	require.Equal(t, "Elden Ring - Deluxe", CleanTitle("Elden Ring &#8211; Deluxe"))
	require.Equal(t, "Ratchet & Clank", CleanTitle("Ratchet &amp; Clank"))
	require.Equal(t, "Control", CleanTitle("Control&#174;"))
	require.Equal(t, "Spiritfarer", CleanTitle("Spiritfarer&trade;"))
}

func TestYear(t *testing.T) {
	require.Equal(t, "2024", Year("Tekken 8 (2024) FitGirl Repack"))
	// parenthesized years outside the plausible window are skipped
	require.Equal(t, "N/A", Year("Doom (1993)"))
	require.Equal(t, "2025", Year("FIFA 2025 Edition"))
	require.Equal(t, "N/A", Year("Half-Life 3"))

	// pure function, same input same output
	title := "Cyberpunk 2077 (2020)"
	require.Equal(t, Year(title), Year(title))
}

func TestSize(t *testing.T) {
	require.Equal(t, "12.5 GB", Size("Download size: 12.5 gb compressed"))
	require.Equal(t, "700 MB", Size("Repack size 700 MB"))
	require.Equal(t, "1.2 TB", Size("full archive 1.2tb"))
	require.Equal(t, "N/A", Size("no size mentioned"))
}

func TestRepacker(t *testing.T) {
	require.Equal(t, "FitGirl", Repacker("Elden Ring FitGirl Repack"))
	require.Equal(t, "DODI", Repacker("GTA V [dodi repack]"))
	// first entry of the vocabulary wins
	require.Equal(t, "FitGirl", Repacker("FitGirl vs DODI comparison"))
	require.Equal(t, "Unknown", Repacker("Some Indie Game"))
}

func TestDriveLinks(t *testing.T) {
	content := `
	<a href="https://drive.google.com/uc?id=abc123&amp;export=download">part 1</a>
	<a href="https://drive.google.com/file/d/abc123">part 1 again</a>
	<a href="https://drive.google.com/file/d/xyz-789">part 2</a>
	`
	links := DriveLinks(content)

	// both shapes for the same file id collapse into one canonical url
	want := []string{
		"https://drive.google.com/uc?export=download&id=abc123",
		"https://drive.google.com/uc?export=download&id=xyz-789",
	}
	if diff := cmp.Diff(want, links); diff != "" {
		t.Fatalf("unexpected links (-want +got):\n%s", diff)
	}
}

func TestDriveLinksOrderAndFallthrough(t *testing.T) {
	content := `https://drive.google.com/file/d/bbb https://drive.google.com/uc?export=view https://drive.google.com/file/d/aaa`
	links := DriveLinks(content)
	require.Equal(t, []string{
		"https://drive.google.com/uc?export=view",
		"https://drive.google.com/uc?export=download&id=bbb",
		"https://drive.google.com/uc?export=download&id=aaa",
	}, links)
}

func TestPassword(t *testing.T) {
	require.Equal(t, "www.example.com", Password("Password: www.example.com<br>"))
	require.Equal(t, "secret", Password("PASSWORD secret"))
	require.Equal(t, "N/A", Password("nothing to see"))
}

func TestPoster(t *testing.T) {
	require.Equal(t,
		"https://cdn.example.com/p.jpg",
		Poster(`<p><img src="https://cdn.example.com/p.jpg" /></p>`),
	)
	require.Equal(t,
		"https://cdn.example.com/p.jpg",
		Poster(`<img src="//cdn.example.com/p.jpg">`),
	)
	require.Equal(t, "", Poster("<p>no image</p>"))
}

func TestRecord(t *testing.T) {
	post := catalog.Post{
		Id:   42,
		Date: "2024-06-01T10:00:00",
		Link: "https://example.com/game",
		Title: catalog.Rendered{
			Rendered: "Download Elden Ring (2022) FitGirl Repack",
		},
		Content: catalog.Rendered{
			Rendered: `Size: 44.5 GB. Password: gg
			<img src="//cdn.example.com/elden.jpg">
			<a href="https://drive.google.com/uc?id=p1&amp;export=download">1</a>
			<a href="https://drive.google.com/file/d/p2">2</a>`,
		},
	}

	record := Record(post)
	require.Equal(t, "Elden Ring (2022) FitGirl Repack", record.Title)
	require.Equal(t, "2022", record.Year)
	require.Equal(t, "FitGirl", record.Repacker)
	require.Equal(t, "44.5 GB", record.Size)
	require.Equal(t, "gg", record.Password)
	require.Equal(t, "https://cdn.example.com/elden.jpg", record.Poster)
	require.Len(t, record.DriveLinks, 2)
	require.Equal(t, len(record.DriveLinks), record.PartsCount)
}

func TestSummarize(t *testing.T) {
	summary := Summarize(catalog.Post{
		Id:    7,
		Date:  "2024-06-01T10:00:00",
		Title: catalog.Rendered{Rendered: "Download Hades II DODI Repack"},
		Content: catalog.Rendered{
			Rendered: "compressed to 6.1 gb",
		},
	})
	require.Equal(t, Summary{
		Id:       7,
		Title:    "Hades II DODI Repack",
		Size:     "6.1 GB",
		Repacker: "DODI",
		Date:     "2024-06-01",
	}, summary)
}
