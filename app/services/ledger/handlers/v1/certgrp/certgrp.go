// Package certgrp maintains the group of handlers for certificate access.
package certgrp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/greenledger/greenledger/business/web/errs"
	"github.com/greenledger/greenledger/foundation/events"
	"github.com/greenledger/greenledger/foundation/ledger"
	"github.com/greenledger/greenledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of certificate and chain endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	Bus    *events.Bus
}

// Issue validates the production data, seals a new certificate into the
// chain and broadcasts the issuance.
func (h Handlers) Issue(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var data ledger.CertificateData
	if err := web.Decode(r, &data); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	hash, err := h.Ledger.Issue(ctx, data)
	if err != nil {
		if ledger.IsFieldErrors(err) {
			return err
		}
		if errors.Is(err, ledger.ErrDuplicateID) {
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	cert, _ := h.Ledger.CertificateByHash(hash)

	h.Bus.EmitCertificateIssued(map[string]any{
		"certificate_id":   cert.ID,
		"certificate_hash": hash,
		"block_index":      cert.BlockIndex,
		"seller_id":        cert.Data.SellerID,
		"facility_name":    cert.Data.FacilityName,
		"tokens_generated": cert.Data.TokensGenerated,
	})
	h.Bus.EmitUpdate(map[string]any{
		"action":       "certificate_issued",
		"total_blocks": h.Ledger.Height(),
	})

	resp := struct {
		Message         string `json:"message"`
		CertificateID   string `json:"certificate_id"`
		CertificateHash string `json:"certificate_hash"`
		BlockIndex      uint64 `json:"block_index"`
		TokensGenerated int    `json:"tokens_generated"`
	}{
		Message:         "certificate issued",
		CertificateID:   cert.ID,
		CertificateHash: hash,
		BlockIndex:      cert.BlockIndex,
		TokensGenerated: cert.Data.TokensGenerated,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Retire permanently consumes the certificate behind the hash. A second
// retirement of the same certificate is refused.
func (h Handlers) Retire(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	ok, err := h.Ledger.Retire(ctx, hash)
	if err != nil {
		return err
	}
	if !ok {
		switch h.Ledger.Status(hash) {
		case ledger.StatusRetired:
			return errs.NewTrusted(errors.New("certificate already retired"), http.StatusConflict)
		default:
			return errs.NewTrusted(errors.New("certificate not found"), http.StatusNotFound)
		}
	}

	cert, _ := h.Ledger.CertificateByHash(hash)

	h.Bus.EmitCertificateRetired(map[string]any{
		"certificate_id":   cert.ID,
		"certificate_hash": hash,
		"block_index":      cert.RetiredBlockIndex,
	})
	h.Bus.EmitUpdate(map[string]any{
		"action":       "certificate_retired",
		"total_blocks": h.Ledger.Height(),
	})

	resp := struct {
		Message       string `json:"message"`
		CertificateID string `json:"certificate_id"`
		Status        string `json:"status"`
	}{
		Message:       "certificate retired",
		CertificateID: cert.ID,
		Status:        cert.Status,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Verify checks a certificate by its issuance hash and broadcasts the
// verification result.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	vrf := h.Ledger.Verify(hash)

	h.Bus.EmitCertificateVerified(map[string]any{
		"certificate_hash": hash,
		"valid":            vrf.Valid,
		"reason":           vrf.Reason,
	})

	return web.Respond(ctx, w, vrf, http.StatusOK)
}

// VerifyByID checks a certificate by its identifier.
func (h Handlers) VerifyByID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	certID := web.Param(r, "id")

	vrf := h.Ledger.VerifyByID(certID)

	h.Bus.EmitCertificateVerified(map[string]any{
		"certificate_id": certID,
		"valid":          vrf.Valid,
		"reason":         vrf.Reason,
	})

	return web.Respond(ctx, w, vrf, http.StatusOK)
}

// Certificate returns the full certificate record by id.
func (h Handlers) Certificate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	certID := web.Param(r, "id")

	cert, exists := h.Ledger.Certificate(certID)
	if !exists {
		return errs.NewTrusted(errors.New("certificate not found"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, cert, http.StatusOK)
}

// History returns the condensed issued/retired history for a certificate.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	certID := web.Param(r, "id")

	history := h.Ledger.CertificateHistory(certID)
	if history == nil {
		return errs.NewTrusted(errors.New("certificate not found"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, history, http.StatusOK)
}

// ChainInfo returns the chain statistics including a full integrity audit.
func (h Handlers) ChainInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.ChainInfo(), http.StatusOK)
}

// Export returns the complete chain for backup.
func (h Handlers) Export(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Export(), http.StatusOK)
}

// Transactions returns the most recent transaction records from the
// whole chain, optionally limited with the limit query parameter.
func (h Handlers) Transactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	limit := queryInt(r, "limit", 50)
	return web.Respond(ctx, w, h.Ledger.TransactionHistory(limit), http.StatusOK)
}

// UserTransactions returns every transaction involving the seller.
func (h Handlers) UserTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	sellerID := web.Param(r, "seller")
	return web.Respond(ctx, w, h.Ledger.UserTransactions(sellerID), http.StatusOK)
}

// CertificateTransactions returns the issuance and retirement records
// for one certificate in chain order.
func (h Handlers) CertificateTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	certID := web.Param(r, "id")

	txs := h.Ledger.CertificateTransactions(certID)
	if txs == nil {
		return errs.NewTrusted(errors.New("certificate not found"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, txs, http.StatusOK)
}

// Search returns issuance records matching the q query parameter.
func (h Handlers) Search(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query().Get("q")
	if query == "" {
		return errs.NewTrusted(errors.New("missing query parameter q"), http.StatusBadRequest)
	}

	return web.Respond(ctx, w, h.Ledger.Search(query), http.StatusOK)
}

// Activity returns the transactions sealed within the last hours query
// parameter, defaulting to 24.
func (h Handlers) Activity(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hours := queryInt(r, "hours", 24)
	return web.Respond(ctx, w, h.Ledger.RecentActivity(hours), http.StatusOK)
}

// Analytics returns the aggregate view over the certificate population.
func (h Handlers) Analytics(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Analytics(), http.StatusOK)
}

// queryInt parses an integer query parameter falling back to a default.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
