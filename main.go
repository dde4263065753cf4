package main

import (
	"context"
	"flag"
	"net/http"
	"strings"
	"time"

	"github.com/kaledh4/daily-alpha-loop/internal/ai"
	"github.com/kaledh4/daily-alpha-loop/internal/cache"
	"github.com/kaledh4/daily-alpha-loop/internal/config"
	"github.com/kaledh4/daily-alpha-loop/internal/filter"
	"github.com/kaledh4/daily-alpha-loop/internal/persist"
	"github.com/kaledh4/daily-alpha-loop/internal/pipeline"
	"github.com/kaledh4/daily-alpha-loop/internal/sources"
	"github.com/kaledh4/daily-alpha-loop/internal/utils"
)

func main() {
	app := flag.String("app", "", "dashboard glob to build, e.g. 'the-shield' or 'the-*' (default: all)")
	noAI := flag.Bool("no-ai", false, "skip model calls to save quota")
	watch := flag.Bool("watch", false, "keep running, repeating the cycle on the refresh interval")
	flag.Parse()

	conf, err := config.ParseConfig()
	if err != nil {
		utils.Logger.Fatal("[ERROR] Unable to build config from environment: ", err)
	}
	if *noAI {
		conf.AI.Disabled = true
	}
	if *app != "" {
		conf.Fetcher.Dashboards = strings.Split(*app, ",")
	}

	selector, err := filter.NewSelector(conf.Fetcher.Dashboards)
	if err != nil {
		utils.Logger.Fatal("[ERROR] Bad dashboard pattern: ", err)
	}

	ttlCache := cache.New(conf.Fetcher.CacheExpiration)
	memo := cache.NewMemoizer(ttlCache)

	httpClient := &http.Client{Timeout: conf.Fetcher.FetchTimeout}
	src := sources.NewClient(memo, httpClient)
	src.FearGreedTTL = conf.Fetcher.FearGreedCacheTTL
	src.TreasuryTTL = conf.Fetcher.TreasuryCacheTTL
	src.NewsTTL = conf.Fetcher.NewsCacheTTL

	var orch *ai.Orchestrator
	if !conf.AI.Disabled {
		backends := ai.NewOpenRouterBackends(ai.OpenRouterOptions{
			BaseURL: conf.AI.BaseURL,
			APIKey:  conf.AI.Key,
			Referer: conf.AI.Referer,
			Title:   conf.AI.Title,
			Client:  &http.Client{Timeout: conf.AI.RequestTimeout},
		}, conf.AI.Models...)
		orch, err = ai.NewOrchestrator(backends...)
		if err != nil {
			utils.Logger.Fatal("[ERROR] Unable to build model fallback list: ", err)
		}
		utils.Logger.Printf("model fallback list: %d backends", len(conf.AI.Models))
	} else {
		utils.Logger.Printf("model calls disabled, dashboards get data-only snapshots")
	}

	store := newStore(conf.Fetcher)

	p := pipeline.New(conf, src, orch, selector, store)

	ctx := context.Background()
	for {
		if err := p.Run(ctx); err != nil {
			utils.Logger.Printf("[ERROR] cycle failed: %v", err)
		}
		if !*watch {
			return
		}
		utils.Logger.Printf("next cycle in %s", conf.Fetcher.RefreshInterval)
		time.Sleep(conf.Fetcher.RefreshInterval)
	}
}

func newStore(conf *config.FetcherConfig) persist.Store {
	if conf.EnableRedis {
		return persist.NewRedisStore(persist.RedisConfig{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
			UseTLS:   conf.RedisUseTLS,
		}, "alphaloop")
	}
	store, err := persist.NewFileStore(conf.DataDir+"/cache", "alphaloop")
	if err != nil {
		utils.Logger.Fatal("[ERROR] Unable to create snapshot store: ", err)
	}
	return store
}
