package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"MarketPrompt/internal/chat"
	"MarketPrompt/internal/components"
	"MarketPrompt/internal/config"
	"MarketPrompt/internal/exchange"
	"MarketPrompt/internal/httpclient"
	"MarketPrompt/internal/indicator"
	"MarketPrompt/internal/logger"
	"MarketPrompt/internal/metrics"
	"MarketPrompt/internal/notifier"
	"MarketPrompt/internal/pipeline"
	"MarketPrompt/internal/recorder"
	"MarketPrompt/internal/scheduler"
	"MarketPrompt/internal/server"
)

// chatTimeout bounds one chat model call, which can take minutes on local
// models.
const chatTimeout = 10 * time.Minute

func main() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	cfgPath := flag.String("config", defaultConfig, "path to the YAML config file")
	jobName := flag.String("job", "", "run the named job once")
	dryRun := flag.Bool("dry-run", false, "print the composed prompt without calling the chat model")
	serve := flag.Bool("serve", false, "run cron jobs, the HTTP API and Telegram commands")
	flag.Parse()

	if err := run(*cfgPath, *jobName, *dryRun, *serve); err != nil {
		fmt.Fprintf(os.Stderr, "prompter: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, jobName string, dryRun, serve bool) error {
	if jobName == "" && !serve {
		flag.Usage()
		return errors.New("either -job or -serve is required")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log.WithField("config", cfgPath).Info("MarketPrompt starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	httpClient := httpclient.New(cfg.Proxy, cfg.Network.Timeout)

	var chatClient *chat.Client
	provider, err := chat.New(cfg.Chat, httpclient.New(cfg.Proxy, chatTimeout))
	if err != nil {
		log.WithError(err).Warn("chat model unavailable, only dry runs and skip_chat jobs will work")
	} else {
		chatClient = chat.NewClient(provider, log).WithObserver(m)
		log.WithField("provider", provider.Name()).Info("chat model ready")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, httpClient, log)
	}

	exOpts := exchange.Options{
		RESTBaseURL: cfg.Exchanges.REST.BaseURL,
		RESTAPIKey:  cfg.Exchanges.REST.APIKey,
	}
	builder := &pipeline.Builder{
		Deps: components.Deps{
			HTTP: httpClient,
			Exchange: func(name string) (exchange.Client, error) {
				return exchange.New(name, httpClient, exOpts)
			},
			Computer: indicator.NewTalibComputer(),
			Log:      log,
		},
		Observer: m,
		Log:      log,
	}
	runner := pipeline.NewRunner(cfg.Jobs, builder)
	runner.Recorder = rec
	runner.Observer = m
	runner.Log = log
	if chatClient != nil {
		builder.Chat = chatClient
		runner.Chat = chatClient
	}
	if tn != nil {
		runner.Notifier = tn
	}

	if !serve {
		return runOnce(ctx, runner, jobName, dryRun)
	}
	return runServer(ctx, cfg, log, runner, rec, tn, m)
}

func runOnce(ctx context.Context, runner *pipeline.Runner, jobName string, dryRun bool) error {
	res, err := runner.Run(ctx, pipeline.Request{
		Job:     jobName,
		Trigger: pipeline.TriggerCLI,
		DryRun:  dryRun,
		Stream:  os.Stdout,
	})
	if err != nil {
		return err
	}

	job, _ := runner.Job(jobName)
	switch {
	case dryRun || job.SkipChat:
		fmt.Println(res.Prompt)
	case !job.Stream:
		fmt.Println(res.Response)
	}
	return nil
}

func runServer(ctx context.Context, cfg *config.Config, log *logrus.Logger, runner *pipeline.Runner,
	rec recorder.Recorder, tn *notifier.TelegramNotifier, m *metrics.Metrics) error {
	sched := scheduler.NewScheduler(ctx, runner, log)
	if err := sched.RegisterAll(runner.Jobs()); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Options{
		Runner:   runner,
		Recorder: rec,
		Metrics:  m.Handler(),
		NextRun:  sched.Next,
		SetLogLevel: func(level string) error {
			return logger.SetLevel(log, level)
		},
		Log:   log,
		Debug: log.IsLevelEnabled(logrus.DebugLevel),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Server.Addr) })

	if tn != nil {
		cmds := notifier.Commands{
			Jobs: func() []notifier.JobInfo {
				var out []notifier.JobInfo
				for _, j := range runner.Jobs() {
					out = append(out, notifier.JobInfo{Name: j.Name, Cron: j.Cron})
				}
				return out
			},
			Run: func(ctx context.Context, name string) (string, error) {
				res, err := runner.Run(ctx, pipeline.Request{Job: name, Trigger: pipeline.TriggerTelegram})
				if err != nil {
					return "", err
				}
				if res.Response == "" {
					return res.Prompt, nil
				}
				return res.Response, nil
			},
		}
		g.Go(func() error {
			tn.StartPolling(gctx, cmds.Handle)
			return nil
		})
		log.Info("telegram polling started")
	}

	log.Info("MarketPrompt is running. Press Ctrl+C to stop.")
	err := g.Wait()
	log.Info("MarketPrompt stopped")
	return err
}
