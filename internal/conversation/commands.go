package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/chart"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/database"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/telegram"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/lib/helpers"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/lib/translation"
)

const helpText = `Possible commands:

/help — Display this help.
/donate — Makes his creator happy 🙂.
/now {pair} — Display the current price of given pair. E.g. /now btc/eur
/chart {pair} — Draw the recent price history of given pair.
/setalert — Creates a new alert.
/myalerts — Display all your alerts.
/deletealert — Deletes a alert.`

const noAlertsText = "You don't have alerts yet. You can create one by using /setalert command"

const donateText = "Thank you, I really appreciate your help to main my services running.\nWhat currency do you want to transfer?"

func welcomeText(name string) string {
	return translation.Translate("Welcome %s, I'm @CryptoAlertBot 🤖.\nI'll help to keep you informed about changes in the cryptocurrency world.\nIf I was useful to you, please consider a donation to his creator at /donate command, I use a backend service that have costs.", name)
}

func (e *Engine) handleCommand(ctx context.Context, m *tgbotapi.Message) (*telegram.Action, error) {
	chatID := m.Chat.ID
	received := strings.ToLower(strings.TrimSpace(m.Text))
	command, rest := splitCommand(received)

	log.Debugf("received command %q from chat %d", command, chatID)

	switch command {
	case "/help":
		return telegram.NewMessageAction(chatID, translation.Translate(helpText)), nil

	case "/now":
		if rest == "" {
			return telegram.NewMessageAction(chatID, "/now command needs 1 argument. "+translation.Translate(helpText)), nil
		}
		return e.commandNow(ctx, chatID, rest)

	case "/chart":
		if rest == "" {
			return telegram.NewMessageAction(chatID, "/chart command needs 1 argument. "+translation.Translate(helpText)), nil
		}
		return e.commandChart(ctx, chatID, rest)

	case "/setalert":
		action := telegram.NewMessageAction(chatID, translation.Translate("What kind of alert?"))
		action.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Price alert", callbackPriceAlert),
			),
		)
		return action, nil

	case "/myalerts":
		return e.commandMyAlerts(chatID)

	case "/deletealert":
		return e.commandDeleteAlert(chatID)

	case "/donate":
		action := telegram.NewMessageAction(chatID, translation.Translate(donateText))
		action.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("BTC", callbackDonateBtc),
				tgbotapi.NewInlineKeyboardButtonData("BCH", callbackDonateBch),
				tgbotapi.NewInlineKeyboardButtonData("ETH", callbackDonateEth),
				tgbotapi.NewInlineKeyboardButtonData("LTC", callbackDonateLtc),
			),
		)
		return action, nil

	default:
		return telegram.NewMessageAction(chatID, translation.Translate("Unknown command.")+" "+translation.Translate(helpText)), nil
	}
}

func (e *Engine) commandNow(ctx context.Context, chatID int64, rawPair string) (*telegram.Action, error) {
	pair := strings.ToUpper(rawPair)

	ex, err := e.pool.Get(e.defaultExchange)
	if err != nil {
		return nil, err
	}

	listed, err := ex.HasPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	if !listed {
		return telegram.NewMessageAction(chatID, fmt.Sprintf("Unknown pair: %s", pair)), nil
	}

	price, err := ex.TickerPrice(ctx, pair)
	if err != nil {
		return nil, err
	}

	_, quote := types.SplitPair(pair)
	return telegram.NewMessageAction(chatID, fmt.Sprintf("%s %s", strconv.FormatFloat(price, 'f', -1, 64), quote)), nil
}

func (e *Engine) commandMyAlerts(chatID int64) (*telegram.Action, error) {
	alerts, err := database.GetAlertsByChatID(strconv.FormatInt(chatID, 10))
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return telegram.NewMessageAction(chatID, translation.Translate(noAlertsText)), nil
	}

	lines := make([]string, 0, len(alerts))
	for i, alert := range alerts {
		lines = append(lines, displayAlert(i, alert))
	}
	return telegram.NewMessageAction(chatID, "Your alerts:\n"+strings.Join(lines, "\n")), nil
}

func (e *Engine) commandDeleteAlert(chatID int64) (*telegram.Action, error) {
	alerts, err := database.GetAlertsByChatID(strconv.FormatInt(chatID, 10))
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return telegram.NewMessageAction(chatID, translation.Translate(noAlertsText)), nil
	}

	// Buttons carry the stable alert id, so a stale keyboard can never
	// delete a different alert than the one it displayed.
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(alerts))
	for i, alert := range alerts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				displayAlert(i, alert),
				fmt.Sprintf("%s%d", callbackDeleteAlert, alert.ID),
			),
		))
	}

	action := telegram.NewMessageAction(chatID, translation.Translate("Which one?"))
	action.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	return action, nil
}

func (e *Engine) commandChart(ctx context.Context, chatID int64, rawPair string) (*telegram.Action, error) {
	pair := strings.ToUpper(rawPair)

	png, caption, cached := chart.CacheGet(pair)
	if !cached {
		ex, err := e.pool.Get(e.defaultExchange)
		if err != nil {
			return nil, err
		}

		candles, err := ex.Candles(ctx, pair, 60)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch candles for %s", pair)
		}
		if len(candles) == 0 {
			return telegram.NewMessageAction(chatID, fmt.Sprintf("Unknown pair: %s", pair)), nil
		}

		png, err = chart.RenderCloses(pair, candles)
		if err != nil {
			return nil, err
		}

		_, quote := types.SplitPair(pair)
		caption = fmt.Sprintf("%s over the last %d minutes, prices in %s", pair, len(candles)*5, quote)
		chart.CacheSet(pair, png, caption, 5*time.Minute)
	}

	if err := e.photos.SendPhotoBytes(chatID, "chart.png", png, caption); err != nil {
		log.Error("error sending chart: ", err)
		return telegram.NewMessageAction(chatID, translation.Translate("Could not send the chart, try again later.")), nil
	}
	return nil, nil
}

func displayAlert(index int, alert types.Alert) string {
	_, quote := types.SplitPair(alert.Pair)
	line := fmt.Sprintf("%d: %s for %s, when price goes %s %s %s on %s",
		index+1, alert.Type, alert.Pair, alert.Direction,
		helpers.FormatPriceUS(alert.Price, false), quote, alert.Exchange)

	if created, err := time.Parse("2006-01-02 15:04:05", alert.CreatedAt); err == nil {
		line += fmt.Sprintf(", set %s", humanize.Time(created))
	}
	return line
}

func splitCommand(text string) (string, string) {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
