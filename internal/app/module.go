package app

import (
	"github.com/shandysiswandi/entryotp/internal/entry"
	"github.com/shandysiswandi/entryotp/internal/notification"
)

func (a *App) initModules() {
	a.router.GET("/health", a.health)

	if a.config.GetBool("modules.entry.enabled") {
		if err := entry.New(entry.Dependency{
			DBConn:      a.dbConn,
			Router:      a.router,
			Gateway:     a.gateway,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Storage:     a.storage,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			UUID:        a.uuid,
			HMAC:        a.hmac,
			Clock:       a.clock,
			Validator:   a.validator,
		}); err != nil {
			a.fatal("failed to init module entry", err)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			Messaging:  a.messaging,
			Gateway:    a.gateway,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Router:     a.router,
		}); err != nil {
			a.fatal("failed to init module notification", err)
		}
	}
}
