package config

import "github.com/kelseyhightower/envconfig"

// Config is read from the environment at process start. Backend selection:
// Mongo when MONGO_URI is set, else redis when REDIS_ADDR is set, else an
// in-memory store (nothing survives a restart).
type Config struct {
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	MongoURI string `envconfig:"MONGO_URI"`
	MongoDB  string `envconfig:"MONGO_DB" default:"notesync"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// MaxStoreWorkers bounds concurrent store calls (saves and hydrations).
	MaxStoreWorkers int `envconfig:"MAX_STORE_WORKERS" default:"16"`
}

func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}
