package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/placesweep/internal/adapters/postgres"
	"github.com/samirrijal/placesweep/internal/adapters/valkey"
	"github.com/samirrijal/placesweep/internal/core/usecases"
	"github.com/samirrijal/placesweep/internal/pkg/config"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sweeps    *usecases.SweepService
	Snapshots *usecases.SnapshotService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	Config    *config.Config
}
