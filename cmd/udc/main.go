package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goa.design/clue/log"

	"github.com/unidatahq/udc/config"
	"github.com/unidatahq/udc/features/cache"
	"github.com/unidatahq/udc/features/keys"
	"github.com/unidatahq/udc/features/ratelimit"
	"github.com/unidatahq/udc/features/webhook"
	"github.com/unidatahq/udc/runtime/assistant"
	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/query"
	"github.com/unidatahq/udc/server"
)

func main() {
	var (
		configF = flag.String("config", "", "Path to YAML configuration file")
		addrF   = flag.String("http-addr", "", "Listen address (overrides configuration)")
		seedF   = flag.Bool("seed", false, "Regenerate the mock data files and exit")
		dbgF    = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	cfg, err := config.Load(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "load configuration")
	}
	if *addrF != "" {
		cfg.HTTP.Addr = *addrF
	}

	if *seedF {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		if err := connector.SeedDataDir(cfg.Data.Dir, rng, time.Now().UTC()); err != nil {
			log.Fatalf(ctx, err, "seed data dir %s", cfg.Data.Dir)
		}
		log.Printf(ctx, "seeded mock data in %s", cfg.Data.Dir)
		return
	}

	store := connector.NewFileStore(cfg.Data.Dir)
	data := query.NewService(store, query.Config{
		MaxResults:       cfg.Data.MaxResults,
		SummaryThreshold: cfg.Data.SummaryThreshold,
		MaxPageSize:      cfg.Data.MaxPageSize,
	})

	keyStore, err := keys.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatalf(ctx, err, "open key store")
	}
	defer keyStore.Close()

	webhookLog, err := webhook.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatalf(ctx, err, "open webhook log")
	}
	defer webhookLog.Close()

	responseCache, err := cache.New(cfg.Cache.RedisURL)
	if err != nil {
		log.Fatalf(ctx, err, "configure cache")
	}
	defer responseCache.Close()

	models := assistant.Models{
		OpenAI:    cfg.Assistant.OpenAIModel,
		Anthropic: cfg.Assistant.AnthropicModel,
		Gemini:    cfg.Assistant.GeminiModel,
	}
	resolver := keys.NewResolver(keyStore, map[assistant.Provider]string{
		assistant.ProviderOpenAI:    cfg.Assistant.OpenAIKey,
		assistant.ProviderAnthropic: cfg.Assistant.AnthropicKey,
		assistant.ProviderGemini:    cfg.Assistant.GeminiKey,
	})
	factory := &assistant.SDKFactory{Models: models, GeminiBaseURL: cfg.Assistant.GeminiBaseURL}
	turns := assistant.NewService(data, resolver, factory, assistant.Config{
		Models:    models,
		MaxTokens: cfg.Assistant.MaxTokens,
	})

	srv := server.New(cfg, server.Deps{
		Store:     store,
		Data:      data,
		Assistant: turns,
		Keys:      keyStore,
		Cache:     responseCache,
		Limiter:   ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration()),
		Webhooks:  webhookLog,
	})

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()
	go func() {
		log.Print(ctx, log.KV{K: "msg", V: "listening"}, log.KV{K: "addr", V: cfg.HTTP.Addr})
		errc <- srv.Listen()
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf(ctx, err, "shutdown")
	}
	log.Printf(ctx, "exited")
}
