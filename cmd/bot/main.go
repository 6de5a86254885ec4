package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"gamesleech-bot/lib/configutil"
	"gamesleech-bot/lib/configutil/sqlitecfg"
	"gamesleech-bot/lib/serviceutil"
	"gamesleech-bot/lib/telegram"
	"gamesleech-bot/lib/telemetry"
	"gamesleech-bot/services/bot"
	"gamesleech-bot/services/catalog"
	"gamesleech-bot/services/quota"
	quotadb "gamesleech-bot/services/quota/db"
	"gamesleech-bot/services/session"

	"github.com/joho/godotenv"
)

type CatalogConfig struct {
	BaseUrl   string `json:"base_url"`
	MirrorUrl string `json:"mirror_url"`
}

type Config struct {
	Token      string           `json:"token"`
	Owners     []int64          `json:"owners"`
	Catalog    CatalogConfig    `json:"catalog"`
	Database   sqlitecfg.Struct `json:"database"`
	DailyLimit int              `json:"daily_limit"`
	HttpPort   int              `json:"http_port"`
	Debug      bool             `json:"debug"`
}

func main() {
	// .env is optional, config.json5 is not
	godotenv.Load()

	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		config.Token = token
	}
	if config.Token == "" {
		slog.Error("no bot token configured, set `token` in config.json5 or BOT_TOKEN in the environment")
		os.Exit(1)
	}
	if config.Catalog.BaseUrl == "" {
		config.Catalog.BaseUrl = "https://gamesleech.com/wp-json/wp/v2"
	}
	if config.Catalog.MirrorUrl == "" {
		config.Catalog.MirrorUrl = "https://www.gamesleech.com/wp-json/wp/v2"
	}
	if config.HttpPort == 0 {
		config.HttpPort = 8444
	}

	telemetry.InitSlog(config.Debug)

	db, err := config.Database.OpenDB(quotadb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "bot")
	if err != nil {
		slog.Warn("telemetry disabled", "err", err)
	} else {
		defer t.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	}

	catalogClient := catalog.NewClient(catalog.Options{
		BaseUrl:   config.Catalog.BaseUrl,
		MirrorUrl: config.Catalog.MirrorUrl,
	})
	quotaService := quota.NewService(db, quota.Options{DailyLimit: config.DailyLimit})
	machine := session.NewMachine(session.NewMemoryStore(0), catalogClient, quotaService, 8)
	gateway := telegram.NewClient(telegram.ClientOptions{Token: config.Token})

	botService := bot.NewService(gateway, machine, quotaService, catalogClient, bot.Options{
		Owners: config.Owners,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/feed.xml", botService.FeedHandler())
	go serviceutil.StartHttpServer(config.HttpPort, mux)

	slog.Info("bot is running")
	go telegram.NewPoller(gateway, botService).Run(ctx)

	<-ctx.Done()
}
