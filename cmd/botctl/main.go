// botctl is the operator CLI: inspect users, grant premium, dump
// search history. It works directly against the bot's database.
package main

import (
	"database/sql"
	"log"
	"os"

	"gamesleech-bot/lib/configutil"
	"gamesleech-bot/lib/configutil/sqlitecfg"
	"gamesleech-bot/services/quota"
	quotadb "gamesleech-bot/services/quota/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type config struct {
	Database sqlitecfg.Struct `json:"database"`
}

var databaseFile string

var rootCmd = &cobra.Command{
	Use:   "botctl",
	Short: "Operator tooling for the catalog bot.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&databaseFile, "db", "",
		"path to the bot database (defaults to the one in config.json5)",
	)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(premiumCmd)
	rootCmd.AddCommand(historyCmd)
	premiumCmd.AddCommand(premiumGrantCmd)
	premiumCmd.AddCommand(premiumRevokeCmd)
}

func openQuota() (quota.Service, *sql.DB) {
	target := sqlitecfg.Struct{File: databaseFile}
	if databaseFile == "" {
		cfg, err := configutil.ReadRecursively[config]("config.json5")
		if err != nil {
			log.Fatal("no --db flag and no config.json5 found: ", err)
		}
		target = cfg.Database
	}
	db, err := target.OpenDB(quotadb.Schema)
	if err != nil {
		log.Fatal(err)
	}
	return quota.NewService(db, quota.Options{}), db
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
