package conversation

import (
	"fmt"
	"strings"
)

// The dialog has no server-side session: each prompt embeds every field
// entered so far as labeled lines, and the next turn reconstructs the step
// and the draft from the text of the message being replied to. The prompt
// texts below are therefore a wire format and never change or get
// translated.

type step int

const (
	stepNone step = iota
	stepPair
	stepPrice
	stepDirection
	stepExchange
)

// draft accumulates the fields of an alert under construction. Price stays
// a string until the final step so the prompt echoes the user's input
// verbatim.
type draft struct {
	Pair      string
	Price     string
	Direction string
}

const (
	promptPairText  = "Price alert 1/4: Which pair?"
	prefixPrice     = "Price alert 2/4"
	prefixDirection = "Price alert 3/4"
	prefixExchange  = "Price alert 4/4"
)

func promptPrice(pair string) string {
	return fmt.Sprintf("%s\nPair: %s\nWhich price?", prefixPrice, pair)
}

func promptPriceRetry(pair string) string {
	return fmt.Sprintf("%s\nPair: %s\nThat doesn't look like a valid price. Which price?", prefixPrice, pair)
}

func promptDirection(pair, price string) string {
	return fmt.Sprintf("%s\nPair: %s\nPrice: %s\nWhen goes above or below that price?", prefixDirection, pair, price)
}

func promptExchange(d draft) string {
	return fmt.Sprintf("%s\nPair: %s\nPrice: %s\nDirection: %s\nWhich exchange?", prefixExchange, d.Pair, d.Price, d.Direction)
}

// promptExchangeRetry re-issues the final prompt with a rejection notice.
// The notice becomes part of the prompt body, so it must stay on one line
// and free of the field labels.
func promptExchangeRetry(d draft, notice string) string {
	return fmt.Sprintf("%s\nPair: %s\nPrice: %s\nDirection: %s\n%s Which exchange?", prefixExchange, d.Pair, d.Price, d.Direction, notice)
}

// parsePrompt decodes the dialog step and the accumulated draft from a
// previously sent prompt. ok is false for any text that is not one of our
// prompts.
func parsePrompt(text string) (step, draft, bool) {
	var d draft

	switch {
	case text == promptPairText:
		return stepPair, d, true
	case strings.HasPrefix(text, prefixPrice):
		d.Pair = messageSection(text, "Pair")
		return stepPrice, d, true
	case strings.HasPrefix(text, prefixDirection):
		d.Pair = messageSection(text, "Pair")
		d.Price = messageSection(text, "Price")
		return stepDirection, d, true
	case strings.HasPrefix(text, prefixExchange):
		d.Pair = messageSection(text, "Pair")
		d.Price = messageSection(text, "Price")
		d.Direction = messageSection(text, "Direction")
		return stepExchange, d, true
	}
	return stepNone, d, false
}

// messageSection extracts the value of a labeled "Label: value" line.
func messageSection(msg, label string) string {
	label += ": "
	start := strings.Index(msg, label)
	if start == -1 {
		return ""
	}
	start += len(label)

	if end := strings.Index(msg[start:], "\n"); end != -1 {
		return msg[start : start+end]
	}
	return msg[start:]
}
