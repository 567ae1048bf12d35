package enums

import "fmt"

// SyncState tracks where a cart line sits relative to the server-held cart.
type SyncState string

const (
	SyncStateLocal   SyncState = "local"
	SyncStateSyncing SyncState = "syncing"
	SyncStateSynced  SyncState = "synced"
	SyncStateError   SyncState = "error"
)

var validSyncStates = []SyncState{
	SyncStateLocal,
	SyncStateSyncing,
	SyncStateSynced,
	SyncStateError,
}

// String implements fmt.Stringer.
func (s SyncState) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SyncState) IsValid() bool {
	for _, candidate := range validSyncStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncState converts raw input into a SyncState.
func ParseSyncState(value string) (SyncState, error) {
	for _, candidate := range validSyncStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync state %q", value)
}
