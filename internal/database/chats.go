package database

import (
	"database/sql"

	"github.com/pkg/errors"
)

// ChatExists reports whether the chat has a marker record. Its presence
// gates command handling versus the first-contact welcome.
func ChatExists(chatID string) (bool, error) {
	var id string
	err := DB.QueryRow(`SELECT chat_id FROM chats WHERE chat_id = ?;`, chatID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to look up chat %s", chatID)
	}
	return true, nil
}

// EnsureChat creates the chat marker record if it does not exist yet.
func EnsureChat(chatID string) error {
	_, err := DB.Exec(`INSERT OR IGNORE INTO chats (chat_id) VALUES (?);`, chatID)
	if err != nil {
		return errors.Wrapf(err, "failed to create chat %s", chatID)
	}
	return nil
}
