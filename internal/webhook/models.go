package webhook

import "encoding/json"

// Recognized notification kinds. Anything else is acknowledged and ignored
// so the backend never sees a failure for event kinds this process does not
// understand yet.
const (
	eventMediaPending  = "MEDIA_PENDING"
	eventMediaApproved = "MEDIA_APPROVED"
)

// Notification is the inbound webhook payload. Ids are json.Number because
// the backend is not consistent about sending them as strings or integers.
type Notification struct {
	NotificationType string               `json:"notification_type"`
	Subject          string               `json:"subject"`
	Media            *NotificationMedia   `json:"media"`
	Request          *NotificationRequest `json:"request"`
}

// NotificationMedia identifies the subject media of a notification.
type NotificationMedia struct {
	MediaType string      `json:"media_type"`
	TmdbID    json.Number `json:"tmdbId"`
	TvdbID    json.Number `json:"tvdbId"`
}

// NotificationRequest identifies the backend request a notification is about.
type NotificationRequest struct {
	RequestID json.Number `json:"request_id"`
}
