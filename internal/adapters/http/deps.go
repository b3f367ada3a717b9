package http

import (
	"github.com/folimar/solkat/internal/adapters/postgres"
	"github.com/folimar/solkat/internal/adapters/valkey"
	"github.com/folimar/solkat/internal/core/usecases"
	"github.com/nats-io/nats.go"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Lookups    *usecases.LookupService
	Buildings  *usecases.BuildingService
	Potentials *usecases.PotentialService
	Datasets   *usecases.DatasetService
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
	StaticDir  string
}
