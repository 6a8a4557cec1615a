package sentry

// Event bus topics published by the sentry module.
const (
	// TopicAlertEmitted carries a sentry.Alert payload for every alert
	// accepted into history.
	TopicAlertEmitted = "sentry.alert.emitted"
)
