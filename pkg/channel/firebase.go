package channel

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FirebaseConfig locates the Firebase project and service account.
type FirebaseConfig struct {
	ProjectID       string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
}

// Configured reports whether the project and credentials are set.
func (c FirebaseConfig) Configured() bool {
	return c.ProjectID != "" && c.CredentialsFile != ""
}

// PushClient sends a single FCM message. *messaging.Client satisfies it.
type PushClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NewFirebaseClient initializes the Firebase app and returns its messaging
// client.
func NewFirebaseClient(ctx context.Context, cfg FirebaseConfig) (*messaging.Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: FIREBASE_PROJECT_ID and FIREBASE_CREDENTIALS_FILE are required", ErrInvalidConfig)
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("channel: init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("channel: init firebase messaging: %w", err)
	}
	return client, nil
}

// FirebaseStrategy delivers push notifications to a device token.
type FirebaseStrategy struct {
	client PushClient
}

func NewFirebase(client PushClient) *FirebaseStrategy {
	return &FirebaseStrategy{client: client}
}

func (s *FirebaseStrategy) Channel() Channel {
	return Firebase
}

func (s *FirebaseStrategy) Send(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.To) == "" {
		return Result{}, ErrMissingRecipient
	}
	if req.Subject == "" && req.Body == "" {
		return Result{}, ErrEmptyContent
	}

	msg := &messaging.Message{
		Token: req.To,
		Notification: &messaging.Notification{
			Title: req.Subject,
			Body:  req.Body,
		},
	}

	data := maps.Clone(req.Data)
	if req.ActionURL != "" {
		if data == nil {
			data = make(map[string]string, 1)
		}
		data["action_url"] = req.ActionURL
		// FCM accepts only HTTPS links for web push click-through.
		if strings.HasPrefix(req.ActionURL, "https://") {
			msg.Webpush = &messaging.WebpushConfig{
				FCMOptions: &messaging.WebpushFCMOptions{Link: req.ActionURL},
			}
		}
	}
	msg.Data = data

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
			return Result{}, errors.Join(ErrInvalidRecipient, err)
		}
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}
	return Result{Channel: Firebase, ProviderID: id}, nil
}
