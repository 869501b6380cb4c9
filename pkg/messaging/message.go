package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/statemachine"
)

// Status is the delivery state of a Message.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// lifecycle is keyed by the incoming status: firing event X from state S
// moves the message to X when X is newer than S.
var lifecycle = statemachine.NewBuilder[Status, Status]().
	Permit(StatusQueued, StatusSent, StatusSent).
	Permit(StatusQueued, StatusDelivered, StatusDelivered).
	Permit(StatusSent, StatusDelivered, StatusDelivered).
	PermitFrom([]Status{StatusQueued, StatusSent}, StatusFailed, StatusFailed).
	Terminal(StatusDelivered, StatusFailed).
	MustBuild()

// Message is one outbound SMS or WhatsApp message.
type Message struct {
	ID                string
	PhoneNumber       string
	Body              string
	Channel           channel.Channel
	Status            Status
	CorrelationID     *string
	SentAt            *time.Time
	DeliveredAt       *time.Time
	FailedAt          *time.Time
	FailureReason     *string
	TemplateID        *string
	TemplateVariables string
	FallbackMessageID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// Variables decodes TemplateVariables.
func (m *Message) Variables() map[string]string {
	if m.TemplateVariables == "" {
		return nil
	}
	var vars map[string]string
	if err := json.Unmarshal([]byte(m.TemplateVariables), &vars); err != nil {
		return nil
	}
	return vars
}

// IsTerminal reports whether no further status change is accepted.
func (m *Message) IsTerminal() bool {
	return lifecycle.IsTerminal(m.Status)
}

// markSent records provider acceptance.
func (m *Message) markSent(correlationID string, at time.Time) error {
	if m.CorrelationID != nil && *m.CorrelationID != correlationID {
		return ErrCorrelationIDAlreadySet
	}
	m.CorrelationID = &correlationID
	if _, err := m.apply(StatusSent, "", at); err != nil {
		return err
	}
	return nil
}

// apply moves the message to next if the lifecycle allows it. It reports
// false without error for duplicate or stale statuses.
func (m *Message) apply(next Status, reason string, at time.Time) (bool, error) {
	if next == m.Status {
		return false, nil
	}
	to, err := lifecycle.Fire(context.Background(), m.Status, next)
	if err != nil {
		if statemachine.IsNoTransitionAvailableError(err) {
			return false, nil
		}
		return false, err
	}

	m.Status = to
	m.UpdatedAt = at
	switch to {
	case StatusSent:
		setOnce(&m.SentAt, at)
	case StatusDelivered:
		setOnce(&m.DeliveredAt, at)
	case StatusFailed:
		setOnce(&m.FailedAt, at)
		if reason != "" && m.FailureReason == nil {
			m.FailureReason = &reason
		}
	}
	return true, nil
}

func setOnce(dst **time.Time, at time.Time) {
	if *dst == nil {
		t := at
		*dst = &t
	}
}
