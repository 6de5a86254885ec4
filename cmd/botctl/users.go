package main

import (
	"log"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Lists every known user with their counters.",
	Run: func(cmd *cobra.Command, args []string) {
		service, db := openQuota()
		defer db.Close()

		users, err := service.AllUsers(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}

		t := newTable()
		t.AppendHeader(table.Row{
			"ID", "Username", "Plan", "Today", "Total", "Downloads", "First seen",
		})
		for _, u := range users {
			plan := "free"
			if u.Premium != 0 {
				plan = "premium"
			}
			firstSeen := ""
			if u.FirstSeen > 0 {
				firstSeen = time.Unix(u.FirstSeen, 0).Format(time.DateOnly)
			}
			t.AppendRow(table.Row{
				u.ID, u.Username, plan,
				u.SearchesToday, u.TotalSearches, u.Downloads, firstSeen,
			})
		}
		t.Render()
	},
}
