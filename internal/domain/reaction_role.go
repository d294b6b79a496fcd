package domain

import (
	"context"
	"strings"
)

// BindingType decides how the roles bound to one anchor message toggle.
type BindingType string

const (
	// BindingGroup is a radio group: only the latest reaction's role stays on.
	BindingGroup BindingType = "group"
	// BindingFree toggles each reaction's role on its own.
	BindingFree BindingType = "free"
)

func ParseBindingType(raw string) (BindingType, bool) {
	switch BindingType(strings.TrimSpace(raw)) {
	case BindingGroup:
		return BindingGroup, true
	case BindingFree:
		return BindingFree, true
	}
	return "", false
}

// ReactionRole is one persisted (message, reaction) -> role binding.
type ReactionRole struct {
	MessageID string
	Reaction  string
	RoleID    string
	Type      BindingType
	ChannelID string
}

type ReactionRoleRepository interface {
	// Get returns nil, nil when no binding exists for the pair.
	Get(ctx context.Context, messageID, reaction string) (*ReactionRole, error)
	ListByMessage(ctx context.Context, messageID string) ([]*ReactionRole, error)
	// List returns every binding ordered by message id ascending.
	List(ctx context.Context) ([]*ReactionRole, error)
	Begin(ctx context.Context) (ReactionRoleTx, error)
}

type ReactionRoleTx interface {
	// Insert fails with ErrDuplicateKey when the pair is already bound.
	Insert(ctx context.Context, rr *ReactionRole) error
	UpdateRole(ctx context.Context, messageID, reaction, roleID string) error
	Delete(ctx context.Context, messageID, reaction string) error
	DeleteByMessage(ctx context.Context, messageID string) (int64, error)
	Commit() error
	Rollback() error
}
