package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// Send delivers a plain text message and reports whether the transport
// accepted it. Failures are logged, never raised to the caller.
func (b *Bot) Send(chatID string, text string) bool {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		log.Errorf("invalid chat id %q: %v", chatID, err)
		return false
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.DisableWebPagePreview = true
	if _, err := b.Bot.Send(msg); err != nil {
		log.Errorf("could not send message to chat %s: %v", chatID, err)
		return false
	}
	return true
}

// SendPhotoBytes uploads an in-memory image to the chat. Used for generated
// charts, which cannot travel in a webhook answer.
func (b *Bot) SendPhotoBytes(chatID int64, name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  name,
		Bytes: data,
	})
	photo.Caption = caption
	_, err := b.Bot.Send(photo)
	return errors.Wrapf(err, "could not send photo to chat %d", chatID)
}
