package webhook

import (
	"bytes"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/conversation"
)

var (
	UpdatesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoalert",
		Subsystem: "webhook",
		Name:      "updates_received",
		Help:      "The total number of webhook updates accepted",
	})
	RepliesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoalert",
		Subsystem: "webhook",
		Name:      "replies_sent",
		Help:      "The total number of webhook requests answered with a chat action",
	})
)

func init() {
	prometheus.MustRegister(UpdatesReceived, RepliesSent)
}

// Handler serves the Telegram webhook. The shared secret travels as the last
// path segment, the usual way to authenticate Telegram's calls.
type Handler struct {
	engine *conversation.Engine
	secret string
}

func NewHandler(engine *conversation.Engine, secret string) *Handler {
	return &Handler{engine: engine, secret: secret}
}

// Register wires the webhook routes into the router.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/webhook/:secret", h.handleUpdate)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

func (h *Handler) handleUpdate(c *gin.Context) {
	if c.Param("secret") != h.secret {
		log.Warnf("unauthorized webhook access from %s", c.ClientIP())
		c.AbortWithStatus(403)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
			c.JSON(500, gin.H{"error": "internal error"})
		}
	}()

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.Status(400)
		return
	}
	if update.Message == nil && update.CallbackQuery == nil {
		c.Status(400)
		return
	}

	UpdatesReceived.Inc()
	log.Debugf("incoming update: %s", spew.Sdump(update))

	action, err := h.engine.HandleUpdate(c.Request.Context(), &update)
	if err != nil {
		log.Errorf("failed to handle update: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if action == nil {
		c.Status(200)
		return
	}

	RepliesSent.Inc()
	c.JSON(200, action)
}
