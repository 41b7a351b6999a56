package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	inmemkv "github.com/trezcool/gradebook/storage/kv/inmem"
	pgkv "github.com/trezcool/gradebook/storage/kv/postgres"
	rediskv "github.com/trezcool/gradebook/storage/kv/redis"
)

// Kind is the lifetime of the values kept by a storage.
type Kind int

const (
	Durable Kind = iota
	Transient
)

func (k Kind) String() string {
	if k == Transient {
		return "transient"
	}
	return "durable"
}

// Open returns the storage driver configured for kind and a func releasing its connections.
// Transient values expire after conf.Session.OnboardingTTL.
func Open(ctx context.Context, conf *core.Config, kind Kind) (core.Storage, func() error, error) {
	driver := conf.Storage.Durable
	var ttl time.Duration
	if kind == Transient {
		driver = conf.Storage.Transient
		ttl = conf.Session.OnboardingTTL
	}
	noop := func() error { return nil }

	switch driver {
	case core.StorageMemory, "":
		return inmemkv.New(ttl), noop, nil

	case core.StorageRedis:
		client, err := rediskv.Open(ctx, conf.Storage.Redis)
		if err != nil {
			return nil, noop, errors.Wrapf(err, "opening %s redis storage", kind)
		}
		prefix := conf.Storage.Redis.Prefix + kind.String() + ":"
		return rediskv.New(client, prefix, ttl), client.Close, nil

	case core.StoragePostgres:
		db, err := pgkv.Open(conf.Storage.Postgres)
		if err != nil {
			return nil, noop, errors.Wrapf(err, "opening %s postgres storage", kind)
		}
		table := conf.Storage.Postgres.Table
		if kind == Transient {
			table += "_transient"
		}
		store, err := pgkv.New(ctx, db, table, ttl)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return store, db.Close, nil

	default:
		return nil, noop, errors.Errorf("unknown %s storage driver %q", kind, driver)
	}
}
