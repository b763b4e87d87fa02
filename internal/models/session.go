package models

import (
	"fmt"
	"time"
)

// ModeKind is the tag of a session mode.
type ModeKind string

const (
	ModeIdle                  ModeKind = "idle"
	ModeSearching             ModeKind = "searching"
	ModeCollectingFiles       ModeKind = "collecting_files"
	ModeAwaitingBroadcastText ModeKind = "awaiting_broadcast_text"
	ModeAwaitingAdminAmount   ModeKind = "awaiting_admin_amount"
	ModeAwaitingAdminTargetID ModeKind = "awaiting_admin_target_id"
)

// AdminAction is the payload of ModeAwaitingAdminAmount.
type AdminAction string

const (
	AdminActionAdd    AdminAction = "add"
	AdminActionRemove AdminAction = "remove"
)

// Mode is what a user is currently doing. Build it with the constructors
// below; the zero value is Idle.
type Mode struct {
	Kind   ModeKind    `json:"kind"`
	Action AdminAction `json:"action,omitempty"`
}

func IdleMode() Mode                  { return Mode{Kind: ModeIdle} }
func SearchingMode() Mode             { return Mode{Kind: ModeSearching} }
func CollectingFilesMode() Mode       { return Mode{Kind: ModeCollectingFiles} }
func AwaitingBroadcastTextMode() Mode { return Mode{Kind: ModeAwaitingBroadcastText} }
func AwaitingAdminTargetIDMode() Mode { return Mode{Kind: ModeAwaitingAdminTargetID} }

func AdminAmountMode(action AdminAction) Mode {
	return Mode{Kind: ModeAwaitingAdminAmount, Action: action}
}

// IsIdle reports whether no flow is active. The zero Mode is idle.
func (m Mode) IsIdle() bool {
	return m.Kind == ModeIdle || m.Kind == ""
}

// IsAdmin reports whether the mode belongs to an admin balance flow.
func (m Mode) IsAdmin() bool {
	return m.Kind == ModeAwaitingAdminAmount || m.Kind == ModeAwaitingAdminTargetID
}

// Validate rejects tag/payload combinations that cannot occur.
func (m Mode) Validate() error {
	switch m.Kind {
	case "", ModeIdle, ModeSearching, ModeCollectingFiles, ModeAwaitingBroadcastText, ModeAwaitingAdminTargetID:
		if m.Action != "" {
			return NewValidationError("mode", fmt.Sprintf("%s takes no action", m.Kind))
		}
		return nil
	case ModeAwaitingAdminAmount:
		if m.Action != AdminActionAdd && m.Action != AdminActionRemove {
			return NewValidationError("mode", fmt.Sprintf("unknown admin action %q", m.Action))
		}
		return nil
	}
	return NewValidationError("mode", fmt.Sprintf("unknown mode %q", m.Kind))
}

func (m Mode) String() string {
	if m.Kind == ModeAwaitingAdminAmount {
		return string(m.Kind) + ":" + string(m.Action)
	}
	if m.Kind == "" {
		return string(ModeIdle)
	}
	return string(m.Kind)
}

// Session is the per-user conversational state.
type Session struct {
	UserID    int64     `json:"user_id"`
	Mode      Mode      `json:"mode"`
	UpdatedAt time.Time `json:"updated_at"`
}
