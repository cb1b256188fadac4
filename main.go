package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/df-mc/dragonfly/server/player/chat"
	"github.com/getsentry/sentry-go"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock"
)

// init ...
func init() {
	chat.Global.Subscribe(chat.StdoutSubscriber{})
}

// main ...
func main() {
	conf, err := pokebedrock.ReadConfig()
	if err != nil {
		panic(err)
	}

	level, err := pokebedrock.ParseLogLevel(conf.PokeBedrock.LogLevel)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	if err != nil {
		log.Warn("falling back to info logging", "error", err)
	}

	if dsn := conf.PokeBedrock.SentryDsn; dsn != "" {
		if err = sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Error("failed to initialise sentry", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	poke, err := pokebedrock.NewPokeBedrock(log, conf)
	if err != nil {
		panic(err)
	}

	poke.Start()
}
