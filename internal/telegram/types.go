package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// BotConfig configuration of the bot
type BotConfig struct {
	Token string
	Debug bool
}

// Bot telegram interaction client
type Bot struct {
	Bot    *tgbotapi.BotAPI
	Config BotConfig
}

// Action is one outbound chat action returned as the webhook response body,
// Telegram's "answer the webhook with a method" shape.
type Action struct {
	Method      string      `json:"method"`
	ChatID      int64       `json:"chat_id"`
	Text        string      `json:"text,omitempty"`
	ReplyMarkup interface{} `json:"reply_markup,omitempty"`
	Photo       string      `json:"photo,omitempty"`
	Caption     string      `json:"caption,omitempty"`
}

// NewMessageAction builds a sendMessage action.
func NewMessageAction(chatID int64, text string) *Action {
	return &Action{Method: "sendMessage", ChatID: chatID, Text: text}
}

// NewPhotoAction builds a sendPhoto action referencing a hosted image.
func NewPhotoAction(chatID int64, photo, caption string) *Action {
	return &Action{Method: "sendPhoto", ChatID: chatID, Photo: photo, Caption: caption}
}
