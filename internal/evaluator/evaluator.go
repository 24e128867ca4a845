package evaluator

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/database"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/exchange"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
)

var (
	AlertsEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoalert",
		Subsystem: "evaluator",
		Name:      "alerts_evaluated",
		Help:      "The total number of alert evaluations performed",
	})
	AlertsTriggered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoalert",
		Subsystem: "evaluator",
		Name:      "alerts_triggered",
		Help:      "The total number of alerts that fired",
	})
	NotificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoalert",
		Subsystem: "evaluator",
		Name:      "notification_failures",
		Help:      "The total number of trigger notifications the transport rejected",
	})
)

func init() {
	prometheus.MustRegister(AlertsEvaluated, AlertsTriggered, NotificationFailures)
}

// Notifier delivers a trigger notification and reports acceptance. It must
// never panic into the evaluation loop.
type Notifier interface {
	Send(chatID string, text string) bool
}

// Service evaluates stored price alerts against live market data.
type Service struct {
	pool     *exchange.Pool
	notifier Notifier

	// runMutex caps the deployment at one concurrent evaluation run.
	runMutex sync.Mutex
}

func New(pool *exchange.Pool, notifier Notifier) *Service {
	return &Service{pool: pool, notifier: notifier}
}

// CheckAlerts runs one evaluation pass over every stored price alert.
// Per-alert failures are logged and skipped; the batch never aborts.
func (s *Service) CheckAlerts(ctx context.Context) {
	log.Println("🔄 Checking alerts...")

	alerts, err := database.GetAllPriceAlerts()
	if err != nil {
		log.Printf("❌ Failed to fetch alerts from the database: %v\n", err)
		return
	}

	cache := newCandleCache()

	for _, alert := range alerts {
		AlertsEvaluated.Inc()

		ex, err := s.pool.Get(alert.Exchange)
		if err != nil {
			log.Printf("⚠️ Skipping alert %d: %v\n", alert.ID, err)
			continue
		}

		candle, err := cache.recentCandle(ctx, ex, alert.Pair)
		if err != nil {
			log.Printf("⚠️ Failed to fetch candle for %s on %s: %v\n", alert.Pair, alert.Exchange, err)
			continue
		}
		if candle == nil {
			// No data for the window, retried next cycle.
			continue
		}

		var triggeredAt float64
		triggered := false

		switch alert.Direction {
		case types.DirectionAbove:
			if candle.High >= alert.Price {
				triggered, triggeredAt = true, candle.High
			}
		case types.DirectionBelow:
			if candle.Low <= alert.Price {
				triggered, triggeredAt = true, candle.Low
			}
		}

		if !triggered {
			continue
		}

		AlertsTriggered.Inc()

		if alert.ChatID == "" {
			log.Printf("❌ Alert %d has no owning chat, skipping\n", alert.ID)
			continue
		}

		if !s.notifier.Send(alert.ChatID, triggerMessage(alert, triggeredAt)) {
			// Delivery failed, keep the alert so the next run retries.
			NotificationFailures.Inc()
			log.Printf("❌ Failed to deliver alert %d to chat %s\n", alert.ID, alert.ChatID)
			continue
		}

		if deleted, err := database.DeleteAlert(alert.ChatID, alert.ID); err != nil {
			log.Printf("❌ Failed to delete triggered alert %d: %v\n", alert.ID, err)
		} else if !deleted {
			log.Printf("⚠️ Triggered alert %d was already deleted\n", alert.ID)
		}
	}

	log.Println("✅ Alert check completed.")
}

func triggerMessage(alert types.Alert, price float64) string {
	base, quote := types.SplitPair(alert.Pair)
	current := strconv.FormatFloat(price, 'f', -1, 64)
	target := strconv.FormatFloat(alert.Price, 'f', -1, 64)

	return fmt.Sprintf(
		"⚠️ %s: %s has reached the price of %s %s!\nI sent this message because you requested me to inform when %s goes %s %s %s on %s.",
		alert.Type, base, current, quote, base, alert.Direction, target, quote, alert.Exchange,
	)
}

func (s *Service) runOnce(parent context.Context, timeout time.Duration) {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 Panic recovered in alert checker: %v\n", r)
		}
	}()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s.CheckAlerts(ctx)
}

// Start launches the background evaluation loop. The first run happens
// immediately, then every interval until ctx is cancelled. Each run gets its
// own wall-clock budget.
func (s *Service) Start(ctx context.Context, interval, runTimeout time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			s.runOnce(ctx, runTimeout)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	log.Println("🚀 Alert service started.")
}
