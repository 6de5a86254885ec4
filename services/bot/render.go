package bot

import (
	"fmt"
	"strings"
	"time"

	"gamesleech-bot/lib/telegram"
	"gamesleech-bot/services/catalog"
	"gamesleech-bot/services/catalog/normalize"
	"gamesleech-bot/services/quota"
)

const genericErrorText = "Something went wrong! Try again."

const homeText = `GamesLeech Bot

Type any game name to search, or use the buttons below.`

const helpText = `HOW TO USE

1. Search
   Type any game name.
   Example: Red Dead Redemption 2

2. Select
   Type the number from the results.
   Example: 1

3. Download
   Press Yes to get the download links.
   All Google Drive parts will be shown.

Tips:
- Be specific with game names
- Include the year for better results
- Use the repacker name if known`

func welcomeText(firstName string) string {
	return fmt.Sprintf(`Welcome to GamesLeech Bot!

Hello %s!

- Search any game by name
- Browse by repacker, year or genre
- Get direct Google Drive links

Simply type a game name to search.
Example: GTA 5, FIFA 24, Cyberpunk`, firstName)
}

func noResultsText(query string) string {
	return fmt.Sprintf("No results for: %s\n\nTry another name!", query)
}

func quotaDeniedText(decision quota.Decision) string {
	wait := time.Until(decision.ResetAt).Round(time.Minute)
	return fmt.Sprintf(
		"Daily search limit reached.\n\nYour quota resets in %s.",
		wait,
	)
}

func searchResultsText(query string, results []normalize.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SEARCH RESULTS\n\nQuery: %s\nFound: %d\n\n", query, len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(r.Title, 50))
	}
	fmt.Fprintf(&b, "\nType a number 1-%d to select.", len(results))
	return b.String()
}

func listingTitle(categoryName string) string {
	if categoryName == "" {
		return "CATEGORY GAMES"
	}
	return strings.ToUpper(categoryName) + " GAMES"
}

func listingText(title string, results []normalize.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s | %s\n", i+1, truncate(r.Title, 45), r.Size, r.Repacker)
	}
	fmt.Fprintf(&b, "\nType a number 1-%d to select.", len(results))
	return b.String()
}

func detailCaption(record normalize.GameRecord) string {
	return fmt.Sprintf(`%s

Year: %s
Repacker: %s
Size: %s
Parts: %d files
Source: Google Drive

Download this game?`,
		record.Title, record.Year, record.Repacker, record.Size, record.PartsCount)
}

func downloadCaption(record normalize.GameRecord) string {
	return fmt.Sprintf(`DOWNLOAD READY

%s

Year: %s
Repacker: %s
Size: %s
Parts: %d files

Password: %s

Download all parts, extract part 1 only.
Type another game name to search.`,
		record.Title, record.Year, record.Repacker, record.Size,
		record.PartsCount, record.Password)
}

func noLinksText(record normalize.GameRecord) string {
	return fmt.Sprintf(`No download links found!

%s

Try visiting the website directly:
%s`, record.Title, record.Url)
}

func homeKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			telegram.KeyboardRow(
				telegram.InlineKeyboardButton{Text: "Latest Games", CallbackData: "latest"},
				telegram.InlineKeyboardButton{Text: "Browse", CallbackData: "browse"},
			),
			telegram.KeyboardRow(
				telegram.InlineKeyboardButton{Text: "Help", CallbackData: "help"},
			),
		},
	}
}

func browseKeyboard() *telegram.InlineKeyboardMarkup {
	rows := [][]telegram.InlineKeyboardButton{}
	for _, group := range catalog.CategoryGroups() {
		row := []telegram.InlineKeyboardButton{}
		for _, category := range group.Categories {
			row = append(row, telegram.InlineKeyboardButton{
				Text:         category.Name,
				CallbackData: fmt.Sprintf("cat_%d", category.Id),
			})
			if len(row) == 2 {
				rows = append(rows, row)
				row = []telegram.InlineKeyboardButton{}
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	rows = append(rows, telegram.KeyboardRow(
		telegram.InlineKeyboardButton{Text: "Back", CallbackData: "back_home"},
	))
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func confirmKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			telegram.KeyboardRow(
				telegram.InlineKeyboardButton{Text: "Yes, download", CallbackData: "confirm_download"},
			),
			telegram.KeyboardRow(
				telegram.InlineKeyboardButton{Text: "Cancel", CallbackData: "cancel"},
			),
		},
	}
}

func backKeyboard(target string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			telegram.KeyboardRow(
				telegram.InlineKeyboardButton{Text: "Back", CallbackData: target},
			),
		},
	}
}

// one button per drive link, in link order
func linkKeyboard(record normalize.GameRecord) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(record.DriveLinks))
	for i, link := range record.DriveLinks {
		rows = append(rows, telegram.KeyboardRow(telegram.InlineKeyboardButton{
			Text: fmt.Sprintf("Part %d - Google Drive", i+1),
			Url:  link,
		}))
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
