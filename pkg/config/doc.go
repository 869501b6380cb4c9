// Package config loads environment configuration into tagged structs.
//
// Values come from the process environment, optionally seeded from a .env
// file in the working directory, and are parsed with caarlos0/env. Each
// struct type is parsed once and cached, so packages can call Load for their
// own Config type without coordinating:
//
//	type Config struct {
//	    AccountSID string `env:"TWILIO_ACCOUNT_SID"`
//	    FromNumber string `env:"TWILIO_FROM_NUMBER"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// MustLoad panics instead of returning an error. Reset drops the cache and
// exists for tests.
package config
