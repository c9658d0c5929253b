package model

import "time"

// ViolationKind identifies an integrity violation.
type ViolationKind string

const (
	ViolationFullscreenExit ViolationKind = "FULLSCREEN_EXIT"
	ViolationTabHidden      ViolationKind = "TAB_HIDDEN"
	ViolationWindowBlur     ViolationKind = "WINDOW_BLUR"
	ViolationRestrictedKey  ViolationKind = "RESTRICTED_KEY"
	ViolationCopy           ViolationKind = "COPY"
	ViolationCut            ViolationKind = "CUT"
	ViolationRightClick     ViolationKind = "RIGHT_CLICK"
)

// Label returns a human-readable name used in toasts and termination reasons.
func (k ViolationKind) Label() string {
	switch k {
	case ViolationFullscreenExit:
		return "Fullscreen exit"
	case ViolationTabHidden:
		return "Tab switch"
	case ViolationWindowBlur:
		return "Window focus lost"
	case ViolationRestrictedKey:
		return "Restricted key"
	case ViolationCopy:
		return "Copy attempt"
	case ViolationCut:
		return "Cut attempt"
	case ViolationRightClick:
		return "Right-click"
	default:
		return string(k)
	}
}

// RequiresCure reports whether the kind opens the return-to-fullscreen dialog
// and its grace period.
func (k ViolationKind) RequiresCure() bool {
	switch k {
	case ViolationFullscreenExit, ViolationTabHidden, ViolationWindowBlur:
		return true
	}
	return false
}

// ViolationEvent is an entry in the in-memory violation log. Never persisted remotely.
type ViolationEvent struct {
	Kind      ViolationKind `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
	Detail    string        `json:"detail,omitempty"`
	Counted   bool          `json:"counted"`
}
