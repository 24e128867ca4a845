package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/database"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/exchange"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
)

type fakeExchange struct {
	name       string
	price      float64
	listed     bool
	candles    []types.Candle
	candlesErr error
}

func (f *fakeExchange) Name() string { return f.name }

func (f *fakeExchange) Candles(ctx context.Context, pair string, limit int) ([]types.Candle, error) {
	return f.candles, f.candlesErr
}

func (f *fakeExchange) TickerPrice(ctx context.Context, pair string) (float64, error) {
	return f.price, nil
}

func (f *fakeExchange) HasPair(ctx context.Context, pair string) (bool, error) {
	return f.listed, nil
}

type fakeSender struct {
	photos int
}

func (f *fakeSender) SendPhotoBytes(chatID int64, name string, data []byte, caption string) error {
	f.photos++
	return nil
}

func newTestEngine(t *testing.T, fe *fakeExchange) *Engine {
	t.Helper()
	require.NoError(t, database.InitDB(":memory:"))
	t.Cleanup(func() { database.CloseDB() })

	pool := exchange.NewPool()
	pool.Register(fe.name, func() (exchange.Exchange, error) { return fe, nil })
	return NewEngine(pool, fe.name, &fakeSender{})
}

func textUpdate(chatID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{FirstName: "Alice"},
	}}
}

func replyUpdate(chatID int64, text, repliedTo string) *tgbotapi.Update {
	u := textUpdate(chatID, text)
	u.Message.ReplyToMessage = &tgbotapi.Message{
		Text: repliedTo,
		Chat: &tgbotapi.Chat{ID: chatID},
	}
	return u
}

func callbackUpdate(chatID int64, data, messageText string) *tgbotapi.Update {
	return &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		Data: data,
		Message: &tgbotapi.Message{
			Text: messageText,
			Chat: &tgbotapi.Chat{ID: chatID},
		},
	}}
}

func TestAlertCreationRoundTrip(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)
	ctx := context.Background()
	chatID := int64(42)

	require.NoError(t, database.EnsureChat("42"))

	action, err := engine.HandleUpdate(ctx, textUpdate(chatID, "/setalert"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "What kind of alert?", action.Text)
	assert.NotNil(t, action.ReplyMarkup)

	action, err = engine.HandleUpdate(ctx, callbackUpdate(chatID, "priceAlert", action.Text))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "Price alert 1/4: Which pair?", action.Text)
	prompt := action.Text

	action, err = engine.HandleUpdate(ctx, replyUpdate(chatID, "BTC/EUR", prompt))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "BTC/EUR")
	prompt = action.Text

	action, err = engine.HandleUpdate(ctx, replyUpdate(chatID, "30000", prompt))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "BTC/EUR")
	assert.Contains(t, action.Text, "30000")
	prompt = action.Text

	action, err = engine.HandleUpdate(ctx, callbackUpdate(chatID, "above", prompt))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "BTC/EUR")
	assert.Contains(t, action.Text, "30000")
	assert.Contains(t, action.Text, "above")
	prompt = action.Text

	action, err = engine.HandleUpdate(ctx, replyUpdate(chatID, "binance", prompt))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "Created a price alert for BTC/EUR, when price goes above 30000 EUR on binance", action.Text)

	alerts, err := database.GetAlertsByChatID("42")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertTypePrice, alerts[0].Type)
	assert.Equal(t, "BTC/EUR", alerts[0].Pair)
	assert.Equal(t, float64(30000), alerts[0].Price)
	assert.Equal(t, "above", alerts[0].Direction)
	assert.Equal(t, "binance", alerts[0].Exchange)
}

func TestInvalidPriceRePrompts(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)
	require.NoError(t, database.EnsureChat("42"))

	action, err := engine.HandleUpdate(context.Background(), replyUpdate(42, "cheap", promptPrice("BTC/EUR")))
	require.NoError(t, err)
	require.NotNil(t, action)

	// The retry is still a valid price prompt carrying the pair.
	st, d, ok := parsePrompt(action.Text)
	assert.True(t, ok)
	assert.Equal(t, stepPrice, st)
	assert.Equal(t, "BTC/EUR", d.Pair)

	alerts, err := database.GetAlertsByChatID("42")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestUnknownExchangeIsRejected(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)
	require.NoError(t, database.EnsureChat("42"))

	prompt := promptExchange(draft{Pair: "BTC/EUR", Price: "30000", Direction: "above"})
	action, err := engine.HandleUpdate(context.Background(), replyUpdate(42, "hitbtc", prompt))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, `I don't know "hitbtc"`)

	st, d, ok := parsePrompt(action.Text)
	assert.True(t, ok)
	assert.Equal(t, stepExchange, st)
	assert.Equal(t, "BTC/EUR", d.Pair)

	alerts, err := database.GetAlertsByChatID("42")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestUnlistedPairIsRejected(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: false}
	engine := newTestEngine(t, fe)
	require.NoError(t, database.EnsureChat("42"))

	prompt := promptExchange(draft{Pair: "DOGE/XYZ", Price: "1", Direction: "below"})
	action, err := engine.HandleUpdate(context.Background(), replyUpdate(42, "binance", prompt))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "does not list DOGE/XYZ")

	alerts, err := database.GetAlertsByChatID("42")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestFirstContactCreatesChatAndWelcomes(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)

	// Even a known command is not dispatched on the very first turn.
	action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/help"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "Welcome Alice")

	exists, err := database.ChatExists("7")
	require.NoError(t, err)
	assert.True(t, exists)

	// The second turn dispatches normally.
	action, err = engine.HandleUpdate(context.Background(), textUpdate(7, "/help"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "/setalert")
}

func TestUnknownCommandRepliesWithHelp(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)
	require.NoError(t, database.EnsureChat("7"))

	action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "gm"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.True(t, strings.HasPrefix(action.Text, "Unknown command."))
	assert.Contains(t, action.Text, "/help")
}

func TestNowCommand(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true, price: 65000.5}
	engine := newTestEngine(t, fe)
	require.NoError(t, database.EnsureChat("7"))

	action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/now btc/usdt"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "65000.5 USDT", action.Text)

	t.Run("unknown pair", func(t *testing.T) {
		fe.listed = false
		action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/now xyz/abc"))
		require.NoError(t, err)
		require.NotNil(t, action)
		assert.Equal(t, "Unknown pair: XYZ/ABC", action.Text)
	})

	t.Run("missing argument", func(t *testing.T) {
		action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/now"))
		require.NoError(t, err)
		require.NotNil(t, action)
		assert.Contains(t, action.Text, "/now command needs 1 argument.")
	})
}

func TestMyAlerts(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)
	require.NoError(t, database.EnsureChat("7"))

	action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/myalerts"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, noAlertsText, action.Text)

	require.NoError(t, database.InsertAlert("7", types.Alert{
		Type: types.AlertTypePrice, Pair: "BTC/USDT", Price: 50000,
		Direction: types.DirectionAbove, Exchange: "binance",
	}))

	action, err = engine.HandleUpdate(context.Background(), textUpdate(7, "/myalerts"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "Your alerts:")
	assert.Contains(t, action.Text, "1: Price alert for BTC/USDT")
	assert.Contains(t, action.Text, "above")
	assert.Contains(t, action.Text, "binance")
}

func TestDeleteAlertByStableID(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)
	require.NoError(t, database.EnsureChat("7"))
	require.NoError(t, database.InsertAlert("7", types.Alert{
		Type: types.AlertTypePrice, Pair: "BTC/USDT", Price: 50000,
		Direction: types.DirectionAbove, Exchange: "binance",
	}))

	action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/deletealert"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "Which one?", action.Text)
	assert.NotNil(t, action.ReplyMarkup)

	alerts, err := database.GetAlertsByChatID("7")
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	data := fmt.Sprintf("deleteAlert%d", alerts[0].ID)
	action, err = engine.HandleUpdate(context.Background(), callbackUpdate(7, data, "Which one?"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "Deleted the alert.", action.Text)

	alerts, err = database.GetAlertsByChatID("7")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestDeleteAlertStaleButtonIsNoOp(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)
	require.NoError(t, database.EnsureChat("7"))

	action, err := engine.HandleUpdate(context.Background(), callbackUpdate(7, "deleteAlert999", "Which one?"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "That alert is already gone.", action.Text)
}

func TestChartCommand(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	sender := &fakeSender{}

	require.NoError(t, database.InitDB(":memory:"))
	t.Cleanup(func() { database.CloseDB() })
	require.NoError(t, database.EnsureChat("7"))

	pool := exchange.NewPool()
	pool.Register(fe.name, func() (exchange.Exchange, error) { return fe, nil })
	engine := NewEngine(pool, fe.name, sender)

	t.Run("fetch error surfaces", func(t *testing.T) {
		fe.candlesErr = errors.New("connection refused")
		_, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/chart btc/usdt"))
		require.Error(t, err)
		fe.candlesErr = nil
	})

	t.Run("no data means unknown pair", func(t *testing.T) {
		action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/chart xyz/abc"))
		require.NoError(t, err)
		require.NotNil(t, action)
		assert.Equal(t, "Unknown pair: XYZ/ABC", action.Text)
	})

	t.Run("renders and uploads", func(t *testing.T) {
		now := time.Now()
		fe.candles = []types.Candle{
			{OpenTime: now.Add(-10 * time.Minute), Close: 50000},
			{OpenTime: now.Add(-5 * time.Minute), Close: 50500},
		}

		action, err := engine.HandleUpdate(context.Background(), textUpdate(7, "/chart eth/eur"))
		require.NoError(t, err)
		assert.Nil(t, action, "the chart travels as a direct upload, not a webhook answer")
		assert.Equal(t, 1, sender.photos)
	})
}

func TestDonateCallbackSendsPhoto(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)

	action, err := engine.HandleUpdate(context.Background(), callbackUpdate(7, "donateBtc", "What currency do you want to transfer?"))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "sendPhoto", action.Method)
	assert.NotEmpty(t, action.Photo)
	assert.NotEmpty(t, action.Caption)
}

func TestNewChatMemberWelcome(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)

	u := &tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:           &tgbotapi.Chat{ID: 9},
		NewChatMembers: []tgbotapi.User{{FirstName: "Bob"}},
	}}
	action, err := engine.HandleUpdate(context.Background(), u)
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "Welcome Bob")

	u.Message.NewChatMembers = []tgbotapi.User{{FirstName: "OtherBot", IsBot: true}}
	action, err = engine.HandleUpdate(context.Background(), u)
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Contains(t, action.Text, "Welcome brother OtherBot")
}

func TestNonTextMessageIsIgnored(t *testing.T) {
	fe := &fakeExchange{name: "binance", listed: true}
	engine := newTestEngine(t, fe)

	u := &tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 9}}}
	action, err := engine.HandleUpdate(context.Background(), u)
	require.NoError(t, err)
	assert.Nil(t, action)
}
