package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/PoluyanbIch/pollquizbot/internal/config"
	"github.com/PoluyanbIch/pollquizbot/internal/events"
	"github.com/PoluyanbIch/pollquizbot/internal/metrics"
	"github.com/PoluyanbIch/pollquizbot/internal/service"
	"github.com/PoluyanbIch/pollquizbot/internal/storage"
	"github.com/PoluyanbIch/pollquizbot/internal/telegram"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := config.Load()
	if cfg.TelegramToken == "" {
		glog.Exit("TELEGRAM_TOKEN environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		glog.Errorf("bot stopped: %v", err)
		glog.Flush()
		stop()
		glog.Exit(err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	bank := service.LoadQuestionBank(cfg.QuestionFile)

	scores, closeScores, err := openScoreStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeScores()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observers := service.Observers{metrics.NewCollector(reg)}

	if cfg.RabbitURL != "" {
		pub, err := events.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		observers = append(observers, pub)
		glog.Infof("Publishing quiz events to exchange %q", cfg.RabbitExchange)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return errors.Wrap(err, "connect to telegram")
	}
	api.Debug = cfg.BotDebug
	glog.Infof("Authorized on account %s", api.Self.UserName)

	quiz := service.NewSessionController(bank, scores, telegram.NewTransport(api),
		service.WithExplainer(service.NewExplanationResolver(cfg.ExplanationSubject).Explain),
		service.WithObserver(observers),
	)
	bot := telegram.NewBot(api, quiz, bank, scores, cfg.UpdateWorkers)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, metrics.NewRouter(reg))
		})
	}
	g.Go(func() error {
		glog.Info("🤖 Bot is starting...")
		return bot.Start(gctx)
	})
	return g.Wait()
}

func openScoreStore(ctx context.Context, cfg config.Config) (service.ScoreStore, func(), error) {
	switch cfg.ScoreDriver {
	case config.ScoreSQLite, config.ScorePostgres:
		db, err := storage.Open(ctx, storage.Driver(cfg.ScoreDriver), cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		glog.Infof("Using %s score store", cfg.ScoreDriver)
		return storage.NewSQLScoreStore(db), func() { db.Close() }, nil
	case config.ScoreRedis:
		client, err := storage.NewRedisClient(ctx, storage.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		glog.Infof("Using redis score store at %s", cfg.RedisAddr)
		return storage.NewRedisScoreStore(client), func() { client.Close() }, nil
	case config.ScoreMemory:
		glog.Warning("Using in-memory score store, scores are lost on restart")
		return service.NewMemoryScoreStore(), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown SCORE_DRIVER %q", cfg.ScoreDriver)
	}
}
