package entry

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/entryotp/internal/entry/inbound"
	"github.com/shandysiswandi/entryotp/internal/entry/outbound/db"
	"github.com/shandysiswandi/entryotp/internal/entry/outbound/mq"
	"github.com/shandysiswandi/entryotp/internal/entry/usecase"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/clock"
	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/hash"
	"github.com/shandysiswandi/entryotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/messaging"
	"github.com/shandysiswandi/entryotp/internal/pkg/router"
	"github.com/shandysiswandi/entryotp/internal/pkg/storage"
	"github.com/shandysiswandi/entryotp/internal/pkg/uid"
	"github.com/shandysiswandi/entryotp/internal/pkg/validator"
)

type Dependency struct {
	DBConn      *pgxpool.Pool              `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Gateway     *channel.Gateway           `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Messaging   messaging.Messaging        `validate:"required"`
	Storage     storage.Storage            `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	HMAC        hash.Hash                  `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Gateway:       dep.Gateway,
		Idempotency:   dep.Idempotency,
		Storage:       dep.Storage,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		UID:           dep.UID,
		UUID:          dep.UUID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
