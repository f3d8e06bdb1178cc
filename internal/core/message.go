package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxChatLength caps chat text, in runes.
const MaxChatLength = 500

// ChatMessage is a chat line as delivered to room members.
type ChatMessage struct {
	Room      RoomID
	From      Member
	Text      string
	CreatedAt time.Time
}

// Signal is a relayed negotiation payload. The payload is never inspected.
type Signal struct {
	From    Member
	Payload json.RawMessage
}

// NormalizeChatText trims text, rejects blank text and cuts long text to MaxChatLength runes.
func NormalizeChatText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", ErrMalformedMessage)
	}
	if utf8.RuneCountInString(text) > MaxChatLength {
		text = string([]rune(text)[:MaxChatLength])
	}
	return text, nil
}
