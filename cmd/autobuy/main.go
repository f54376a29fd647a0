package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/term"

	"github.com/mbennett2212/harmoney-autobuy/internal/config"
	"github.com/mbennett2212/harmoney-autobuy/internal/marketplace"
	"github.com/mbennett2212/harmoney-autobuy/internal/model"
	"github.com/mbennett2212/harmoney-autobuy/internal/notifier"
	"github.com/mbennett2212/harmoney-autobuy/internal/order"
	"github.com/mbennett2212/harmoney-autobuy/internal/policy"
	"github.com/mbennett2212/harmoney-autobuy/internal/recorder"
	"github.com/mbennett2212/harmoney-autobuy/internal/report"
	"github.com/mbennett2212/harmoney-autobuy/internal/scheduler"
	"github.com/mbennett2212/harmoney-autobuy/internal/session"
)

func main() {
	var (
		firstName string
		lastName  string
		email     string
		logFile   string
		cfgPath   string
	)
	flag.StringVar(&firstName, "f", "", "first name used to register the Harmoney account")
	flag.StringVar(&firstName, "first-name", "", "first name used to register the Harmoney account")
	flag.StringVar(&lastName, "l", "", "last name used to register the Harmoney account")
	flag.StringVar(&lastName, "last-name", "", "last name used to register the Harmoney account")
	flag.StringVar(&email, "e", "", "email address used to register the Harmoney account")
	flag.StringVar(&email, "email", "", "email address used to register the Harmoney account")
	flag.StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")
	flag.StringVar(&cfgPath, "config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if firstName == "" || lastName == "" || email == "" {
		flag.Usage()
		os.Exit(2)
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("[FATAL] open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	// The password is only ever taken interactively, never from a flag or
	// the environment.
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("[FATAL] read password: %v", err)
	}

	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("[FATAL] load timezone: %v", err)
	}

	log.Println("[INFO] harmoney-autobuy starting...")

	identity := model.Identity{FirstName: firstName, LastName: lastName, Email: email}
	sess := session.New()
	client := marketplace.NewClient(cfg, sess)
	manager := session.NewManager(client, sess, identity, string(pw))
	pol := policy.New(cfg.Policy.Grades, cfg.Policy.NoteValue)
	executor := order.NewExecutor(client)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var not notifier.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		not = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	} else {
		not = notifier.NewNoopNotifier()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[INFO] shutdown signal received, stopping...")
		cancel()
	}()

	// Daily purchase summary on the market clock.
	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))
	rep := report.NewReporter(rec, not, loc)
	if err := rep.Register(c, cfg.Schedule.DailyReportCron); err != nil {
		log.Fatalf("[FATAL] register daily report: %v", err)
	}
	c.Start()
	defer c.Stop()

	sched := scheduler.New(cfg, loc, scheduler.Deps{
		Auth:     manager,
		Market:   client,
		Buyer:    executor,
		Policy:   pol,
		Recorder: rec,
		Notifier: not,
	})
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[FATAL] scheduler: %v", err)
	}
	log.Println("[INFO] harmoney-autobuy stopped")
}
