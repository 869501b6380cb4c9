// Package redis connects to Redis with go-redis and exposes a health probe.
// The client backs the durable event queue (events.RedisStorage).
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	storage := events.NewRedisStorage(client, eventsCfg.RedisPrefix)
package redis
