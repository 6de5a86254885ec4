package main

import (
	"log"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of entries to show")
}

var historyCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Shows a user's most recent searches.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userId, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Fatal("user id must be numeric: ", err)
		}

		service, db := openQuota()
		defer db.Close()

		entries, err := service.History(cmd.Context(), userId, historyLimit)
		if err != nil {
			log.Fatal(err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"When", "Query"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				time.Unix(entry.SearchedAt, 0).Format(time.DateTime),
				entry.Query,
			})
		}
		t.Render()
	},
}
