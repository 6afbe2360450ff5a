// ABOUTME: ConversationTurn is one message in a multi-turn conversation
// ABOUTME: Roles mirror chat-completion roles so history can be replayed to the model
package models

import (
	"errors"
	"strings"
)

// Role identifies who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single user or assistant message
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTurn creates a turn with validation
func NewTurn(role Role, content string) (ConversationTurn, error) {
	if role != RoleUser && role != RoleAssistant {
		return ConversationTurn{}, errors.New("role must be user or assistant")
	}
	if strings.TrimSpace(content) == "" {
		return ConversationTurn{}, errors.New("turn content cannot be empty")
	}
	return ConversationTurn{Role: role, Content: content}, nil
}
