package notifications

import "errors"

var (
	ErrNotificationNotFound = errors.New("notifications: notification not found")
	ErrUserNotFound         = errors.New("notifications: user not found")
	ErrMissingUserID        = errors.New("notifications: user id is required")
	ErrMissingTitle         = errors.New("notifications: title is required")
	ErrMissingMessage       = errors.New("notifications: message is required")
	ErrDuplicateID          = errors.New("notifications: notification already exists")
)
