package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/valkey-io/valkey-go"

	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/session/postgres"
	valkeystore "github.com/MrEthical07/goSession/session/valkey"
)

// openStore builds the configured session store and returns a function
// releasing its connections.
func openStore(ctx context.Context, cfg config.Store) (session.Store, func(), error) {
	switch cfg.Kind {
	case "memory":
		return session.NewMemoryStore(nil), func() {}, nil

	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Address},
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		store := session.NewRedisStore(client, cfg.Prefix, nil)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil

	case "valkey":
		client, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: []string{cfg.Address},
			Password:    cfg.Password,
			SelectDB:    cfg.DB,
		})
		if err != nil {
			return nil, nil, oops.In("main").Wrapf(err, "creating a new valkey client")
		}
		return valkeystore.NewStore(client, cfg.Prefix, nil), client.Close, nil

	case "postgres":
		pool, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(pool, nil), pool.Close, nil

	default:
		return nil, nil, oops.In("main").Errorf("unknown store kind %q", cfg.Kind)
	}
}
