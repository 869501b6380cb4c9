// Package logger builds *slog.Logger instances for dispatchkit services and
// provides attribute helpers so that delivery logs use the same keys
// everywhere (channel, correlation_id, notification_id, masked phone, ...).
//
// New assembles a text or JSON handler from functional options and wraps it
// with LogHandlerDecorator, which appends attributes pulled from the context
// on every record:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "dispatchd"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	logger.SetAsDefault(log)
//
//	log.LogAttrs(ctx, slog.LevelInfo, "sms accepted",
//	    logger.Channel("twilio_sms"),
//	    logger.CorrelationID(sid),
//	    logger.Phone(phone),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
