// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/greenledger/greenledger/app/services/ledger/handlers/v1/certgrp"
	"github.com/greenledger/greenledger/app/services/ledger/handlers/v1/evtgrp"
	"github.com/greenledger/greenledger/foundation/events"
	"github.com/greenledger/greenledger/foundation/ledger"
	"github.com/greenledger/greenledger/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	Bus    *events.Bus
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	cgh := certgrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
		Bus:    cfg.Bus,
	}

	app.Handle(http.MethodPost, version, "/certificates", cgh.Issue)
	app.Handle(http.MethodPost, version, "/certificates/:hash/retire", cgh.Retire)
	app.Handle(http.MethodGet, version, "/certificates/id/:id", cgh.Certificate)
	app.Handle(http.MethodGet, version, "/certificates/id/:id/history", cgh.History)
	app.Handle(http.MethodGet, version, "/verify/:hash", cgh.Verify)
	app.Handle(http.MethodGet, version, "/verify/id/:id", cgh.VerifyByID)
	app.Handle(http.MethodGet, version, "/chain/info", cgh.ChainInfo)
	app.Handle(http.MethodGet, version, "/chain/export", cgh.Export)
	app.Handle(http.MethodGet, version, "/transactions", cgh.Transactions)
	app.Handle(http.MethodGet, version, "/transactions/user/:seller", cgh.UserTransactions)
	app.Handle(http.MethodGet, version, "/transactions/certificate/:id", cgh.CertificateTransactions)
	app.Handle(http.MethodGet, version, "/transactions/search", cgh.Search)
	app.Handle(http.MethodGet, version, "/activity", cgh.Activity)
	app.Handle(http.MethodGet, version, "/analytics", cgh.Analytics)

	egh := evtgrp.Handlers{
		Log: cfg.Log,
		Bus: cfg.Bus,
	}

	app.Handle(http.MethodGet, version, "/events", egh.Events)
	app.Handle(http.MethodGet, version, "/events/stats", egh.Stats)
	app.Handle(http.MethodGet, version, "/events/history", egh.History)
	app.Handle(http.MethodPost, version, "/events/subscribe", egh.Subscribe)
}
