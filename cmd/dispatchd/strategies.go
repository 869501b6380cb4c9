package main

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/dispatchkit/pkg/channel"
)

// buildStrategies returns one strategy per channel. A channel without
// credentials logs messages instead of sending them.
func buildStrategies(ctx context.Context, twilioCfg channel.TwilioConfig, firebaseCfg channel.FirebaseConfig, postmarkCfg channel.PostmarkConfig, log *slog.Logger) ([]channel.Strategy, error) {
	var out []channel.Strategy

	if postmarkCfg.Configured() {
		api, err := channel.NewPostmarkAPI(postmarkCfg)
		if err != nil {
			return nil, err
		}
		out = append(out, channel.NewEmail(api, postmarkCfg))
	} else {
		out = append(out, logOnly(channel.Email, log))
	}

	if firebaseCfg.Configured() {
		client, err := channel.NewFirebaseClient(ctx, firebaseCfg)
		if err != nil {
			return nil, err
		}
		out = append(out, channel.NewFirebase(client))
	} else {
		out = append(out, logOnly(channel.Firebase, log))
	}

	if twilioCfg.Configured() {
		api, err := channel.NewTwilioAPI(twilioCfg)
		if err != nil {
			return nil, err
		}
		out = append(out, channel.NewTwilioSMS(api, twilioCfg), channel.NewTwilioWhatsApp(api, twilioCfg))
	} else {
		out = append(out, logOnly(channel.TwilioSms, log), logOnly(channel.TwilioWhatsApp, log))
	}

	return out, nil
}

func logOnly(ch channel.Channel, log *slog.Logger) channel.Strategy {
	log.Warn("channel provider not configured, messages will only be logged", slog.String("channel", ch.String()))
	return channel.NewLogStrategy(ch, log)
}
