package state

import (
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/telemetry"
)

type AuthState struct {
	UserID          string `json:"userId,omitempty"`
	Email           string `json:"email,omitempty"`
	SessionIssuedAt int64  `json:"sessionIssuedAt,omitempty"`
	Onboarded       bool   `json:"onboarded,omitempty"`
}

type PendingSwitch struct {
	ProfileID   string `json:"profileId"`
	RequestedAt int64  `json:"requestedAt"`
}

type ProfileState struct {
	ActiveProfileID string          `json:"activeProfileId,omitempty"`
	PendingSwitches []PendingSwitch `json:"pendingSwitches,omitempty"`
}

type SettingsState struct {
	Theme                string `json:"theme,omitempty"`
	Language             string `json:"language,omitempty"`
	NotificationsEnabled bool   `json:"notificationsEnabled,omitempty"`
}

func NewAuthContainer(stateStorage storage.StateStorage, reporter telemetry.Reporter) *Container[AuthState] {
	return NewContainer[AuthState](storage.KeyAuthState, stateStorage, reporter)
}

func NewProfileContainer(stateStorage storage.StateStorage, reporter telemetry.Reporter) *Container[ProfileState] {
	return NewContainer[ProfileState](storage.KeyProfileState, stateStorage, reporter)
}

func NewSettingsContainer(stateStorage storage.StateStorage, reporter telemetry.Reporter) *Container[SettingsState] {
	return NewContainer[SettingsState](storage.KeySettingsState, stateStorage, reporter)
}
