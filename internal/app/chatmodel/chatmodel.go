// Package chatmodel wraps conversational completion models behind one interface
package chatmodel

import (
	"context"
	"fmt"
)

// Role is the author of a conversation turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior message of a conversation
type Turn struct {
	Role Role
	Text string
}

// Completer produces the model's reply to message given the conversation so far
type Completer interface {
	Complete(ctx context.Context, history []Turn, message string) (string, error)
}

// BlockedError is returned when the safety policy rejects the prompt
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("prompt blocked: %s", e.Reason)
}
