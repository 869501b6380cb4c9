package notifications

// NotificationCreated is published after a notification is stored.
type NotificationCreated struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
}

func (NotificationCreated) EventName() string {
	return "notifications.created"
}
