package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/config"
	"github.com/Alias1177/Fusion/internal/database"
	"github.com/Alias1177/Fusion/internal/ensemble"
	"github.com/Alias1177/Fusion/internal/fusion"
	"github.com/Alias1177/Fusion/internal/manipulation"
	"github.com/Alias1177/Fusion/internal/marketdata"
	"github.com/Alias1177/Fusion/internal/metrics"
	"github.com/Alias1177/Fusion/internal/notify"
	"github.com/Alias1177/Fusion/internal/pipeline"
	"github.com/Alias1177/Fusion/internal/risk"
	"github.com/Alias1177/Fusion/models"
)

func init() {
	// если .env лежит в корне проекта, без аргумента он сам найдёт
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	// 1) Настраиваем логгер и парсим конфиг
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2) Собираем компоненты
	provider := marketdata.NewClient(marketdata.ClientConfig{
		APIKey:         cfg.TwelveAPIKey,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})
	predictor := ensemble.NewPredictor(ensemble.NewRegistry(time.Now().UnixNano()))
	detector := manipulation.New(cfg.ManipulationConfig())
	fuser := fusion.NewEngine(cfg.FusionConfig(), cfg.TimeframeWeights())

	tracker := risk.NewTracker(cfg.AnnualizationBars)
	riskMgr := risk.NewManager(cfg.RiskConfig(), cfg.RiskProfile(), tracker)

	m := metrics.New()
	eval := pipeline.New(provider, predictor, detector, fuser, riskMgr,
		pipeline.WithMetrics(m),
		pipeline.WithFetchBars(cfg.FetchBars),
	)

	// 3) Опциональные интеграции: журнал сделок и телеграм
	var journal models.TradeJournal
	if cfg.DatabaseURL.Host != "" {
		db, err := database.New(database.ConnectionParams{
			Host:     cfg.DatabaseURL.Host,
			Port:     cfg.DatabaseURL.Port,
			User:     cfg.DatabaseURL.User,
			Password: cfg.DatabaseURL.Password,
			DBName:   cfg.DatabaseURL.DBName,
			SSLMode:  cfg.DatabaseURL.SSLMode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()
		journal = db

		// Прошлые сделки кормят трекер: троттлинг продолжается после рестарта.
		for _, symbol := range cfg.Symbols {
			trades, err := journal.ListTradeCloses(ctx, symbol)
			if err != nil {
				log.Error().Err(err).Str("symbol", symbol).Msg("trade history load failed")
				continue
			}
			for _, tc := range trades {
				tracker.Record(tc)
			}
			log.Info().Str("symbol", symbol).Int("trades", len(trades)).Msg("trade history loaded")
		}
	}

	var notifier *notify.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifier, err = notify.New(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram init failed")
		}
	}

	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	// 4) Цикл оценки
	interval := time.Duration(cfg.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Strs("symbols", cfg.Symbols).Dur("interval", interval).Msg("engine started")
	runTick(ctx, eval, notifier, cfg.Symbols)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			runTick(ctx, eval, notifier, cfg.Symbols)
		}
	}
}

func runTick(ctx context.Context, eval *pipeline.Pipeline, notifier *notify.Notifier, symbols []string) {
	for _, symbol := range symbols {
		result, err := eval.Evaluate(ctx, symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("evaluation failed")
			continue
		}

		overall := result.Signal.Overall
		log.Info().
			Str("symbol", symbol).
			Str("direction", string(overall.Direction)).
			Float64("confidence", overall.Confidence).
			Int("strength", overall.Strength).
			Str("risk", string(overall.RiskLevel)).
			Int("degraded", len(result.Degraded)).
			Msg("signal")

		if notifier != nil && overall.Direction != models.DirectionNeutral {
			if err := notifier.SendSignal(result.Signal, result.Sizing); err != nil {
				log.Error().Err(err).Str("symbol", symbol).Msg("notify failed")
			}
		}
	}
}
