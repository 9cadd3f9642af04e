package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"afisha/internal/config"
	"afisha/internal/dataset"
	"afisha/internal/geocode"
	appLog "afisha/internal/log"
	"afisha/internal/runner"
	"afisha/internal/sheet"
	"afisha/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath  string
	listen      string
	once        bool
	resaveCache bool
	verbose     bool
}

func main() {
	flags := parseFlags()

	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("afisha starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI -listen overrides the config file if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"sheet_url", conf.Sheet.URL,
		"events_file", conf.EventsFile,
		"cache_file", conf.CacheFile,
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	cache := geocode.NewCache(conf.CacheFile, geocode.Region{
		MinLat: conf.Geocode.Region.MinLat, MaxLat: conf.Geocode.Region.MaxLat,
		MinLon: conf.Geocode.Region.MinLon, MaxLon: conf.Geocode.Region.MaxLon,
	})
	cache.Load()

	attempts := geocode.NewAttemptLog()
	resolver := geocode.NewResolver(cache, buildCascade(conf), geocode.LocalityHint{
		Keywords: conf.Geocode.LocalityKeywords,
		Default:  conf.Geocode.DefaultLocality,
	}, attempts)

	fetcher := sheet.NewFetcher(conf.Sheet.URL, conf.Sheet.Timeout, conf.Sheet.MaxRetries)

	run := runner.New(conf, fetcher, resolver, cache, attempts)
	run.ForceCacheSave = flags.resaveCache

	var srv *web.Server
	if conf.Listen != "" {
		srv = web.NewServer(conf)
		// Seed the HTTP snapshot from the persisted dataset so a restart
		// whose first fetch fails still serves the last known events.
		srv.SetEvents(dataset.Load(conf.EventsFile))
		run.OnDataset = srv.SetEvents
		startWebServer(ctx, conf.Listen, srv)
	}

	if flags.once {
		if err := run.Run(ctx); err != nil {
			appLog.Error("sync run failed", err)
			os.Exit(1)
		}
		appLog.Info("afisha exiting")
		return
	}

	// Daemon mode: one run at startup, then on the cron schedule. A failed
	// run logs and waits for the next tick.
	doRun := func() {
		if err := run.Run(ctx); err != nil {
			appLog.Error("sync run failed", err)
		}
	}

	// SkipIfStillRunning keeps overdue ticks from stacking up behind a long
	// cycle; the runner carries the same guard for any other caller.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLog{})))
	if _, err := c.AddFunc(conf.RefreshCron, doRun); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}

	doRun()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("afisha exiting")
}

// cronLog adapts the application logger to the cron.Logger interface.
type cronLog struct{}

func (cronLog) Info(msg string, kv ...interface{}) { appLog.Info("cron: "+msg, kv...) }

func (cronLog) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}

// buildCascade wires the provider chain in priority order. A provider that
// is disabled or missing required credentials stays in the chain as an
// unconfigured slot so the attempt log reflects it.
func buildCascade(conf *config.Config) []geocode.Entry {
	g := conf.Geocode
	cascade := make([]geocode.Entry, 0, 3)

	if g.ArcGIS.Disabled {
		cascade = append(cascade, geocode.Entry{Name: "arcgis"})
	} else {
		p := geocode.NewArcGIS(g.ArcGIS.BaseURL, g.ArcGIS.UserAgent, g.ArcGIS.Timeout)
		cascade = append(cascade, geocode.Entry{
			Name:     "arcgis",
			Provider: geocode.RateLimited(p, g.ArcGIS.MinInterval),
		})
	}

	if g.Yandex.Disabled || g.Yandex.APIKey == "" {
		cascade = append(cascade, geocode.Entry{Name: "yandex"})
	} else {
		p := geocode.NewYandex(g.Yandex.BaseURL, g.Yandex.APIKey, g.Yandex.UserAgent, g.Yandex.Timeout)
		cascade = append(cascade, geocode.Entry{
			Name:     "yandex",
			Provider: geocode.RateLimited(p, g.Yandex.MinInterval),
		})
	}

	if g.Nominatim.Disabled {
		cascade = append(cascade, geocode.Entry{Name: "nominatim"})
	} else {
		p := geocode.NewNominatim(g.Nominatim.BaseURL, g.Nominatim.UserAgent, g.Nominatim.Timeout)
		cascade = append(cascade, geocode.Entry{
			Name:     "nominatim",
			Provider: geocode.RateLimited(p, g.Nominatim.MinInterval),
		})
	}

	return cascade
}

// startWebServer runs the HTTP server in the background and shuts it down
// when ctx is canceled.
func startWebServer(ctx context.Context, listen string, srv *web.Server) {
	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err, "listen", listen)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			appLog.Warn("HTTP server shutdown failed", "err", err)
		}
	}()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one sync cycle and exit")
	flag.BoolVar(&cfg.resaveCache, "resave-cache", false, "Rewrite the geocode cache file even if unchanged")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
