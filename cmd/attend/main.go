// attend is a personal focus monitor: it turns browser context-switch
// events into session records and daily stats, and fires time-gated
// nudges (morning briefing, milestones, distraction alerts, meeting
// warnings, end-of-day summary) without duplicates.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mtholden/attend/internal/aggregate"
	"github.com/mtholden/attend/internal/classify"
	"github.com/mtholden/attend/internal/config"
	"github.com/mtholden/attend/internal/ingest"
	"github.com/mtholden/attend/internal/integrations/calendar"
	"github.com/mtholden/attend/internal/integrations/github"
	"github.com/mtholden/attend/internal/integrations/mail"
	"github.com/mtholden/attend/internal/integrations/weather"
	"github.com/mtholden/attend/internal/logging"
	"github.com/mtholden/attend/internal/notify"
	"github.com/mtholden/attend/internal/remote"
	"github.com/mtholden/attend/internal/scheduler"
	"github.com/mtholden/attend/internal/store"
	"github.com/mtholden/attend/internal/tracker"
)

func main() {
	log.Println("attend - focus monitor daemon")

	if err := godotenv.Load(); err != nil {
		logging.Info("config", "no .env file found, using environment variables")
	}

	cfg := config.FromEnv()
	os.MkdirAll(cfg.StatePath, 0755)

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		log.Fatalf("Failed to load policy: %v", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	var ai classify.AIClient
	if os.Getenv("OLLAMA_DISABLED") != "true" {
		ai = classify.NewOllamaClient()
	}
	classifier := classify.New(st, policy.Allow, policy.Deny, ai)

	trk := tracker.New(st, classifier, &policy.Exclusions, cfg.MinSession, cfg.HeartbeatFlushAfter)
	agg := aggregate.New(st, classifier, cfg.DailyGoal)
	cache := remote.NewCache()

	var notifier notify.Notifier = notify.LogNotifier{}
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		dn, err := notify.NewDiscordNotifier(token, os.Getenv("DISCORD_CHANNEL_ID"))
		if err != nil {
			logging.Warn("main", "discord notifier disabled: %v", err)
		} else {
			notifier = dn
			logging.Info("main", "notifications go to Discord")
		}
	}

	sched := scheduler.New(cfg, st, agg, classifier, notifier, cache)
	wireIntegrations(sched, cfg)

	// Event-triggered celebration; runs on the dispatcher goroutine via
	// the tracker callback below, so it stays serialized with ticks.
	trk.SetFirstProductiveFunc(func(day string) {
		sched.OnFirstProductive(context.Background(), day)
	})

	events := make(chan ingest.Event, 100)
	listener := ingest.NewListener(cfg.SocketPath, events)
	if err := listener.Start(); err != nil {
		log.Fatalf("Failed to start ingest listener: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	runDispatcher(cfg, st, trk, agg, sched, events, sigChan)

	logging.Info("main", "shutting down")
	listener.Stop()
	if err := trk.Flush(context.Background()); err != nil {
		logging.Warn("main", "flush open session: %v", err)
	}
	logging.Info("main", "goodbye")
}

// runDispatcher is the single logical writer: every state mutation
// (session open/close, aggregation, rule ledger updates) happens on this
// goroutine, one event or tick at a time.
func runDispatcher(cfg *config.Config, st *store.Store, trk *tracker.Tracker, agg *aggregate.Aggregator, sched *scheduler.Scheduler, events <-chan ingest.Event, sigChan <-chan os.Signal) {
	heartbeat := time.NewTicker(cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	rules := time.NewTicker(cfg.RuleTickInterval)
	defer rules.Stop()
	sweep := time.NewTicker(6 * time.Hour)
	defer sweep.Stop()

	ctx := context.Background()
	logging.Info("main", "dispatcher running (heartbeat %s, rule tick %s)",
		cfg.HeartbeatInterval, cfg.RuleTickInterval)

	for {
		select {
		case <-sigChan:
			return

		case ev := <-events:
			switch ev.Kind {
			case "context":
				if err := trk.OnContextChange(ctx, ev.ContextEvent()); err != nil {
					logging.Warn("main", "context change: %v", err)
				}
			case "copy":
				err := st.SaveClipboardEvent(ctx, store.ClipboardEvent{
					Domain:    ev.Domain,
					URL:       ev.URL,
					Text:      ev.Text,
					CreatedAt: ev.Timestamp,
				})
				if err != nil {
					logging.Warn("main", "save copy event: %v", err)
				}
			default:
				logging.Debug("main", "ignoring event kind %q", ev.Kind)
			}

		case <-heartbeat.C:
			if err := trk.OnHeartbeat(ctx); err != nil {
				logging.Warn("main", "heartbeat: %v", err)
			}
			// Keep today's snapshot current between rule ticks.
			if _, _, err := agg.Aggregate(ctx, store.DayKey(time.Now())); err != nil {
				logging.Warn("main", "aggregate: %v", err)
			}

		case <-rules.C:
			if err := sched.Tick(ctx); err != nil {
				logging.Warn("main", "rule tick: %v", err)
			}

		case <-sweep.C:
			retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
			deleted, failures := st.Sweep(ctx, time.Now(), retention)
			logging.Info("main", "retention sweep: %d rows deleted, %d failures", deleted, failures)
		}
	}
}

func wireIntegrations(sched *scheduler.Scheduler, cfg *config.Config) {
	if cfg.HasLocation() {
		sched.SetWeather(weather.NewClient(cfg.Latitude, cfg.Longitude))
		logging.Info("main", "weather enabled")
	}
	if cal, err := calendar.NewClient(); err == nil {
		sched.SetCalendar(cal)
		logging.Info("main", "calendar enabled")
	} else {
		logging.Debug("main", "calendar disabled: %v", err)
	}
	if m, err := mail.NewClient(); err == nil {
		sched.SetMail(m)
		logging.Info("main", "mail enabled")
	} else {
		logging.Debug("main", "mail disabled: %v", err)
	}
	if gh, err := github.NewClient(); err == nil {
		sched.SetGitHub(gh)
		logging.Info("main", "github enabled")
	} else {
		logging.Debug("main", "github disabled: %v", err)
	}
}
