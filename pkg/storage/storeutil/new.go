// Package storeutil selects the storage backend once at process start.
package storeutil

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/synaptideco/synaptide/pkg/storage"
	"github.com/synaptideco/synaptide/pkg/storage/inmemory"
	"github.com/synaptideco/synaptide/pkg/storage/mongo"
)

// NewStoreOpts configures backend selection.
type NewStoreOpts struct {
	// Backend is "mongo" or "memory". An empty MongoURI also selects the
	// in-memory store.
	Backend  string
	MongoURI string
	Database string

	// Fallback allows degradation to the in-memory store when the durable
	// backend fails to initialize, instead of failing startup.
	Fallback bool

	Logger *zap.Logger
}

// NewStore builds the store for the configured backend. The decision is
// made exactly once; callers hold one Store handle for the process
// lifetime and inject it where needed.
func NewStore(ctx context.Context, o NewStoreOpts) (storage.Store, error) {
	switch o.Backend {
	case "", "memory":
		o.Logger.Info("using in-memory storage")
		return inmemory.NewStore(), nil
	case "mongo":
		if o.MongoURI == "" {
			o.Logger.Info("no mongodb uri configured, using in-memory storage")
			return inmemory.NewStore(), nil
		}
		store, err := mongo.NewStore(ctx, mongo.Config{URI: o.MongoURI, Database: o.Database}, o.Logger)
		if err != nil {
			if o.Fallback {
				o.Logger.Warn("mongodb unavailable, falling back to in-memory storage",
					zap.Error(err),
				)
				return inmemory.NewStore(), nil
			}
			return nil, err
		}
		o.Logger.Info("using mongodb storage",
			zap.String("database", o.Database),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", o.Backend)
	}
}
