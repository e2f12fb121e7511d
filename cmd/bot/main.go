package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/EduardaSRBastos/astro-alert/internal/almanac"
	"github.com/EduardaSRBastos/astro-alert/internal/bot"
	"github.com/EduardaSRBastos/astro-alert/internal/config"
	"github.com/EduardaSRBastos/astro-alert/internal/ephemeris"
	"github.com/EduardaSRBastos/astro-alert/internal/geolocate"
	"github.com/EduardaSRBastos/astro-alert/internal/notify"
	"github.com/EduardaSRBastos/astro-alert/internal/schedule"
	"github.com/EduardaSRBastos/astro-alert/internal/state"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
	"github.com/EduardaSRBastos/astro-alert/pkg/sdnotify"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// .env is optional; secrets may come from the unit environment.
	_ = godotenv.Load()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logSvc, log := logx.New(cfg.LogxConfig(), nil)
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("svc", "config")))
	mgr.SetValidator(func(ctx context.Context, c *config.Config) error { return c.Validate() })

	stateCfg, err := cfg.StateStoreConfig()
	if err != nil {
		return err
	}
	store, err := state.Open(stateCfg, log.With(logx.String("svc", "state")))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	// A provider that failed to initialize still serves requests: every
	// call reports unavailability instead of crashing command handlers.
	var provider ephemeris.Provider
	if meeus, err := ephemeris.NewMeeus(); err != nil {
		log.Error("ephemeris init failed; running degraded", logx.Err(err))
		provider = ephemeris.Failed(err)
	} else {
		provider = meeus
	}

	geoClient, err := cfg.GeolocateClient()
	if err != nil {
		return err
	}
	geo := geolocate.NewResolver(geoClient, log.With(logx.String("svc", "geolocate")))

	phases := almanac.NewPhaseResolver(provider, log.With(logx.String("svc", "almanac")))
	eclipse := almanac.NewEclipseScanner(provider, log.With(logx.String("svc", "almanac")))

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		return err
	}
	tg, err := bot.New(bot.Config{
		Token:       cfg.Telegram.Token,
		Channel:     cfg.Telegram.Channel,
		PollTimeout: pollTimeout,
	}, phases, eclipse, geo, log.With(logx.String("svc", "bot")))
	if err != nil {
		return fmt.Errorf("telegram init: %w", err)
	}
	logSvc.SetSender(tg)

	tracker := notify.NewTracker(store, log.With(logx.String("svc", "notify")))
	engine := notify.NewEngine(phases, eclipse, geo, tracker, tg, log.With(logx.String("svc", "cycle")))

	cycleCfg, err := schedule.FromFile(cfg.Cycle)
	if err != nil {
		return err
	}
	trigger := schedule.New(cycleCfg, func(ctx context.Context) {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := engine.RunCycle(cctx); err != nil {
			log.Error("cycle failed", logx.Err(err))
		}
	}, log.With(logx.String("svc", "schedule")))

	if err := tg.Start(ctx); err != nil {
		return err
	}
	defer tg.Stop()
	if err := trigger.Start(); err != nil {
		return err
	}

	// Follow config edits: logging, cycle trigger and validation are
	// hot; token/channel changes need a restart.
	sub := mgr.Subscribe(1)
	defer mgr.Unsubscribe(sub)
	go func() { _ = mgr.Watch(ctx) }()
	go func() {
		for c := range sub {
			changed, attrs := config.SummarizeChange(cfg, c)
			if len(changed) > 0 {
				log.Info("config applied", append(attrs, logx.Any("sections", changed))...)
			}
			logSvc.Apply(c.LogxConfig())
			if c.Telegram.Channel != cfg.Telegram.Channel {
				if err := tg.SetChannel(c.Telegram.Channel); err != nil {
					log.Warn("channel not applied", logx.Err(err))
				}
			}
			if cc, err := schedule.FromFile(c.Cycle); err == nil {
				if err := trigger.Apply(cc); err != nil {
					log.Warn("cycle trigger not applied", logx.Err(err))
				}
			}
			cfg = c
		}
	}()

	sdnotify.Ready()
	go sdnotify.Watchdog(ctx)
	log.Info("astro-alert started", logx.String("config", cfgPath))

	// First cycle right away so a fresh install announces today.
	go func() {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := engine.RunCycle(cctx); err != nil {
			log.Error("startup cycle failed", logx.Err(err))
		}
	}()

	<-ctx.Done()
	sdnotify.Stopping()
	log.Info("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	trigger.Stop(stopCtx)
	return nil
}
