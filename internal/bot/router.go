package bot

import (
	"strconv"
	"strings"
)

// Component custom ids are the wire protocol between workflow steps:
// confirm_<token>, cancel, approve_<requestId>. Anything else is ignored.
const (
	confirmPrefix = "confirm_"
	cancelID      = "cancel"
	approvePrefix = "approve_"
)

// ControlKind is the closed set of recognized component controls.
type ControlKind int

const (
	ControlUnknown ControlKind = iota
	ControlConfirm
	ControlCancel
	ControlApprove
)

// Control is a parsed component activation.
type Control struct {
	Kind      ControlKind
	Token     string // confirm only
	RequestID int    // approve only
}

// parseControl decodes a component custom id defensively: unknown prefixes
// and malformed payloads come back as ControlUnknown rather than an error,
// since the platform may deliver ids this process never produced.
func parseControl(customID string) Control {
	switch {
	case customID == cancelID:
		return Control{Kind: ControlCancel}
	case strings.HasPrefix(customID, confirmPrefix):
		return Control{Kind: ControlConfirm, Token: customID[len(confirmPrefix):]}
	case strings.HasPrefix(customID, approvePrefix):
		requestID, err := strconv.Atoi(customID[len(approvePrefix):])
		if err != nil || requestID < 0 {
			return Control{Kind: ControlUnknown}
		}
		return Control{Kind: ControlApprove, RequestID: requestID}
	}
	return Control{Kind: ControlUnknown}
}
