package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/database"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/exchange"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/telegram"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/lib/translation"
)

const (
	callbackPriceAlert  = "priceAlert"
	callbackAbove       = "above"
	callbackBelow       = "below"
	callbackDeleteAlert = "deleteAlert"
	callbackDonateBtc   = "donateBtc"
	callbackDonateBch   = "donateBch"
	callbackDonateEth   = "donateEth"
	callbackDonateLtc   = "donateLtc"
)

var donations = map[string]struct{ photo, address string }{
	callbackDonateBtc: {"https://i.ibb.co/FHN2Z4B/Bitcoin-QR-code.png", "33TwXHzMTpSNMJZ4JcwExLExsF3BshBUPE"},
	callbackDonateBch: {"https://i.ibb.co/7NR3Jvb/Bitcoin-Cash-QR-code.png", "qpfu774dk0n732su8u9yvzxyctgeq37q55dpt82ytr"},
	callbackDonateEth: {"https://i.ibb.co/kyXhH34/Ethereum-QR-code.png", "0xa772c6bab9d175256ff635843c461d3f65a7236b"},
	callbackDonateLtc: {"https://i.ibb.co/BrhThhH/Litecoin-QR-code.png", "M9adpiNQXsbEf7j5ZVnuDCGNoXT7oMW3vd"},
}

// Sender uploads generated images straight through the bot API, outside the
// webhook answer.
type Sender interface {
	SendPhotoBytes(chatID int64, name string, data []byte, caption string) error
}

// Engine turns one inbound Telegram update into at most one outbound chat
// action. It holds no per-chat state: multi-turn dialogs are reconstructed
// from the replied-to prompt text on every call.
type Engine struct {
	pool            *exchange.Pool
	defaultExchange string
	photos          Sender
}

func NewEngine(pool *exchange.Pool, defaultExchange string, photos Sender) *Engine {
	return &Engine{
		pool:            pool,
		defaultExchange: defaultExchange,
		photos:          photos,
	}
}

// HandleUpdate processes a single update. A nil action with a nil error
// means there is nothing to answer (the transport replies 200 with no body).
func (e *Engine) HandleUpdate(ctx context.Context, u *tgbotapi.Update) (*telegram.Action, error) {
	if u.CallbackQuery != nil {
		return e.handleCallback(ctx, u.CallbackQuery)
	}

	m := u.Message
	if m == nil || m.Chat == nil {
		return nil, nil
	}

	if len(m.NewChatMembers) > 0 {
		member := m.NewChatMembers[0]
		if member.IsBot {
			return telegram.NewMessageAction(m.Chat.ID, translation.Translate("Welcome brother %s. Together we make this world better 🤖.", member.FirstName)), nil
		}
		return telegram.NewMessageAction(m.Chat.ID, welcomeText(member.FirstName)), nil
	}

	if m.Text == "" {
		return nil, nil
	}

	chat := strconv.FormatInt(m.Chat.ID, 10)
	exists, err := database.ChatExists(chat)
	if err != nil {
		return nil, err
	}
	if !exists {
		// First contact: create the marker record and greet, commands are
		// not dispatched on this turn.
		if err := database.EnsureChat(chat); err != nil {
			return nil, err
		}
		var name string
		if m.From != nil {
			name = m.From.FirstName
		}
		return telegram.NewMessageAction(m.Chat.ID, welcomeText(name)), nil
	}

	if m.ReplyToMessage != nil && m.ReplyToMessage.Text != "" {
		if st, d, ok := parsePrompt(m.ReplyToMessage.Text); ok {
			return e.handleReply(ctx, m, st, d)
		}
	}

	return e.handleCommand(ctx, m)
}

func (e *Engine) handleReply(ctx context.Context, m *tgbotapi.Message, st step, d draft) (*telegram.Action, error) {
	chatID := m.Chat.ID
	text := strings.ToLower(strings.TrimSpace(m.Text))

	switch st {
	case stepPair:
		d.Pair = strings.ToUpper(text)
		return forceReplyAction(chatID, promptPrice(d.Pair)), nil

	case stepPrice:
		price, err := strconv.ParseFloat(text, 64)
		if err != nil || price <= 0 {
			return forceReplyAction(chatID, promptPriceRetry(d.Pair)), nil
		}
		d.Price = text
		return directionKeyboardAction(chatID, promptDirection(d.Pair, d.Price)), nil

	case stepDirection:
		// Direction is picked with the inline buttons, free text just gets
		// the same prompt again.
		return directionKeyboardAction(chatID, promptDirection(d.Pair, d.Price)), nil

	case stepExchange:
		return e.finishAlert(ctx, chatID, d, text)
	}

	return nil, nil
}

// finishAlert validates the chosen exchange synchronously so an alert can
// never be persisted against a provider that would fail every evaluation.
func (e *Engine) finishAlert(ctx context.Context, chatID int64, d draft, exchangeName string) (*telegram.Action, error) {
	ex, err := e.pool.Get(exchangeName)
	if err != nil {
		if errors.Is(err, exchange.ErrUnknownExchange) {
			notice := fmt.Sprintf("I don't know %q, try one of: %s.", exchangeName, strings.Join(e.pool.Names(), ", "))
			return forceReplyAction(chatID, promptExchangeRetry(d, notice)), nil
		}
		return nil, err
	}

	listed, err := ex.HasPair(ctx, d.Pair)
	if err != nil {
		return nil, err
	}
	if !listed {
		notice := fmt.Sprintf("%s does not list %s.", ex.Name(), d.Pair)
		return forceReplyAction(chatID, promptExchangeRetry(d, notice)), nil
	}

	price, err := strconv.ParseFloat(d.Price, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt price %q reconstructed from prompt", d.Price)
	}

	chat := strconv.FormatInt(chatID, 10)
	alert := types.Alert{
		Type:      types.AlertTypePrice,
		Pair:      d.Pair,
		Price:     price,
		Direction: d.Direction,
		Exchange:  ex.Name(),
	}
	if err := database.InsertAlert(chat, alert); err != nil {
		return nil, err
	}

	_, quote := types.SplitPair(d.Pair)
	confirmation := fmt.Sprintf("Created a price alert for %s, when price goes %s %s %s on %s", d.Pair, d.Direction, d.Price, quote, ex.Name())
	return telegram.NewMessageAction(chatID, confirmation), nil
}

func (e *Engine) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) (*telegram.Action, error) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return nil, nil
	}
	chatID := cq.Message.Chat.ID

	switch data := cq.Data; {
	case data == callbackPriceAlert:
		return forceReplyAction(chatID, promptPairText), nil

	case data == callbackAbove || data == callbackBelow:
		st, d, ok := parsePrompt(cq.Message.Text)
		if !ok || st != stepDirection {
			return nil, nil
		}
		d.Direction = data
		return forceReplyAction(chatID, promptExchange(d)), nil

	case strings.HasPrefix(data, callbackDeleteAlert):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, callbackDeleteAlert), 10, 64)
		if err != nil {
			return nil, nil
		}
		chat := strconv.FormatInt(chatID, 10)
		deleted, err := database.DeleteAlert(chat, id)
		if err != nil {
			return nil, err
		}
		if !deleted {
			return telegram.NewMessageAction(chatID, translation.Translate("That alert is already gone.")), nil
		}
		return telegram.NewMessageAction(chatID, translation.Translate("Deleted the alert.")), nil

	default:
		if donation, ok := donations[data]; ok {
			return telegram.NewPhotoAction(chatID, donation.photo, donation.address), nil
		}
	}

	return nil, nil
}

func forceReplyAction(chatID int64, text string) *telegram.Action {
	action := telegram.NewMessageAction(chatID, text)
	action.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true}
	return action
}

func directionKeyboardAction(chatID int64, text string) *telegram.Action {
	action := telegram.NewMessageAction(chatID, text)
	action.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Above", callbackAbove),
			tgbotapi.NewInlineKeyboardButtonData("Below", callbackBelow),
		),
	)
	return action
}
