package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/config"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/conversation"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/database"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/evaluator"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/exchange"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/telegram"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/webhook"
)

// persistedMetrics maps database metric names to the counters saved across
// restarts.
var persistedMetrics = map[string]prometheus.Counter{
	"updates_received":      webhook.UpdatesReceived,
	"replies_sent":          webhook.RepliesSent,
	"alerts_evaluated":      evaluator.AlertsEvaluated,
	"alerts_triggered":      evaluator.AlertsTriggered,
	"notification_failures": evaluator.NotificationFailures,
}

func init() {
	_ = godotenv.Load()
	config.InitConfig()
	setupLogging()
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")

	err := database.InitDB(config.GetString("database_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	loadMetricsFromDB()

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token: config.GetString("telegram_bot_token"),
		Debug: config.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	pool := exchange.NewPool()
	engine := conversation.NewEngine(pool, config.GetString("default_exchange"), bot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service := evaluator.New(pool, bot)
	service.Start(ctx,
		time.Duration(config.GetInt("check_interval_minutes"))*time.Minute,
		time.Duration(config.GetInt("run_timeout_seconds"))*time.Second,
	)

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			saveMetricsToDB()
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		saveMetricsToDB()
		cancel()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	go func() {
		if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()

	if !config.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	webhook.NewHandler(engine, config.GetString("webhook_secret")).Register(router)

	log.Infof("Launching webhook server on :%d", config.GetInt("listen_port"))
	if err := router.Run(fmt.Sprintf(":%d", config.GetInt("listen_port"))); err != nil {
		log.Fatalf("Failed to start webhook server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

func loadMetricsFromDB() {
	for name, counter := range persistedMetrics {
		value, err := database.GetMetric(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		counter.Add(value)
	}
	log.Println("Metrics loaded from database.")
}

func saveMetricsToDB() {
	for name, counter := range persistedMetrics {
		if err := database.SaveMetric(name, getMetricValue(counter)); err != nil {
			log.Errorf("Failed to save metric %s: %v", name, err)
		}
	}
	log.Println("Metrics saved to database.")
}

func getMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
