package database

import (
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// InsertAlert saves a new alert owned by the given chat.
func InsertAlert(chatID string, alert types.Alert) error {
	query := `
	INSERT INTO alerts (chat_id, type, pair, price, direction, exchange)
	VALUES (?, ?, ?, ?, ?, ?);`

	_, err := DB.Exec(query, chatID, alert.Type, alert.Pair, alert.Price, alert.Direction, alert.Exchange)
	if err != nil {
		return errors.Wrap(err, "failed to insert alert")
	}

	return nil
}

// GetAllPriceAlerts fetches every price alert across all chats, the
// cross-chat scan the evaluator runs on.
func GetAllPriceAlerts() ([]types.Alert, error) {
	query := `SELECT id, chat_id, type, pair, price, direction, exchange, created_at FROM alerts WHERE type = ?;`

	rows, err := DB.Query(query, types.AlertTypePrice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query alerts")
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var alert types.Alert
		if err := rows.Scan(&alert.ID, &alert.ChatID, &alert.Type, &alert.Pair, &alert.Price, &alert.Direction, &alert.Exchange, &alert.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// GetAlertsByChatID fetches all alerts owned by a specific chat.
func GetAlertsByChatID(chatID string) ([]types.Alert, error) {
	query := `SELECT id, chat_id, type, pair, price, direction, exchange, created_at FROM alerts WHERE chat_id = ?;`

	rows, err := DB.Query(query, chatID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query alerts for chat %s", chatID)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var alert types.Alert
		if err := rows.Scan(&alert.ID, &alert.ChatID, &alert.Type, &alert.Pair, &alert.Price, &alert.Direction, &alert.Exchange, &alert.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// DeleteAlert removes an alert by its stable id and reports whether a row
// was actually deleted, so a stale delete button reads as a no-op. The chat
// id is part of the predicate so one chat can never delete another chat's
// alert.
func DeleteAlert(chatID string, alertID int64) (bool, error) {
	query := `DELETE FROM alerts WHERE id = ? AND chat_id = ?;`
	result, err := DB.Exec(query, alertID, chatID)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete alert")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to count deleted alerts")
	}
	return affected > 0, nil
}
