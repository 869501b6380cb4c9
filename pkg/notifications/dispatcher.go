package notifications

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/dispatchkit/pkg/async"
	"github.com/dmitrymomot/dispatchkit/pkg/channel"
	"github.com/dmitrymomot/dispatchkit/pkg/logger"
	"github.com/dmitrymomot/dispatchkit/pkg/messaging"
)

// StrategySource resolves channel strategies. *channel.Factory satisfies it.
type StrategySource interface {
	GetStrategy(ch channel.Channel) (channel.Strategy, error)
	Expand(channels []channel.Channel) []channel.Channel
}

// Recipient holds the per-channel addresses of one recipient.
type Recipient struct {
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PushToken string `json:"push_token,omitempty"`
}

// Payload is the content sent on every requested channel.
type Payload struct {
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	ActionURL  string            `json:"action_url,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

type DispatchRequest struct {
	Recipient Recipient         `json:"recipient"`
	Payload   Payload           `json:"payload"`
	Channels  []channel.Channel `json:"channels"`
}

// DispatchResult is the outcome on one channel.
type DispatchResult struct {
	Channel    channel.Channel `json:"channel"`
	Success    bool            `json:"success"`
	ProviderID string          `json:"provider_id,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type DispatchResults []DispatchResult

// AnySucceeded reports whether at least one channel accepted the message.
func (r DispatchResults) AnySucceeded() bool {
	for _, res := range r {
		if res.Success {
			return true
		}
	}
	return false
}

// Dispatcher sends a payload over several channels concurrently.
type Dispatcher struct {
	strategies StrategySource
	logger     *slog.Logger
}

// NewDispatcher returns a Dispatcher. A nil logger uses slog.Default.
func NewDispatcher(strategies StrategySource, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		strategies: strategies,
		logger:     log.With(logger.Component("dispatcher")),
	}
}

// Send delivers req on every requested channel and returns one result per
// channel in request order. It never fails as a whole.
func (d *Dispatcher) Send(ctx context.Context, req DispatchRequest) DispatchResults {
	channels := d.strategies.Expand(req.Channels)
	results := make(DispatchResults, len(channels))
	if len(channels) == 0 {
		return results
	}

	futures := make([]*async.Future[channel.Result], len(channels))
	for i, ch := range channels {
		futures[i] = async.Async(ctx, ch, func(ctx context.Context, ch channel.Channel) (channel.Result, error) {
			strategy, err := d.strategies.GetStrategy(ch)
			if err != nil {
				return channel.Result{}, err
			}
			return strategy.Send(ctx, buildRequest(ch, req))
		})
	}

	for i, out := range async.Settle(ctx, futures...) {
		res := DispatchResult{Channel: channels[i]}
		if out.Err != nil {
			res.Error = out.Err.Error()
			d.logger.LogAttrs(ctx, slog.LevelWarn, "channel delivery failed",
				logger.Channel(string(channels[i])),
				logger.UserID(req.Recipient.UserID),
				logger.Error(out.Err),
			)
		} else {
			res.Success = true
			res.ProviderID = out.Value.ProviderID
		}
		results[i] = res
	}
	return results
}

func buildRequest(ch channel.Channel, req DispatchRequest) channel.Request {
	r := channel.Request{
		Subject:           req.Payload.Title,
		Body:              req.Payload.Body,
		TemplateID:        req.Payload.TemplateID,
		TemplateVariables: req.Payload.Variables,
		ActionURL:         req.Payload.ActionURL,
		Data:              req.Payload.Data,
	}
	switch ch {
	case channel.Email:
		r.To = req.Recipient.Email
	case channel.Firebase:
		r.To = req.Recipient.PushToken
	case channel.TwilioSms, channel.TwilioWhatsApp:
		r.To = messaging.NormalizePhone(req.Recipient.Phone)
	}
	return r
}
