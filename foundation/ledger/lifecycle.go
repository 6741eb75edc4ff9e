package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// retirementReason is recorded in every retirement payload.
const retirementReason = "certificate used for credit purchase"

// Set of reasons a verification can report.
const (
	ReasonNotFound = "not_found"
	ReasonRetired  = "retired"
	ReasonTampered = "tampered"
)

// Verification is the result of verifying a certificate against the chain.
type Verification struct {
	Valid   bool    `json:"valid"`
	Payload Payload `json:"payload,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Issue validates the certificate data, seals it into a new block and
// records the certificate as active. The returned hash is the handle for
// later verification and retirement. Fails with FieldErrors before any
// mutation when required fields are absent or malformed, and with
// ErrDuplicateID on an identifier collision.
func (l *Ledger) Issue(ctx context.Context, data CertificateData) (string, error) {
	if err := check(data); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	certID := uuid.NewString()

	// A certificate id maps to exactly one issuance block.
	if _, exists := l.certificates[certID]; exists {
		return "", ErrDuplicateID
	}

	tokens := data.TokensGenerated
	if tokens == 0 {
		tokens = int(data.WeightKg)
	}

	payload := Payload{
		Type:              TypeCertificate,
		CertificateID:     certID,
		SellerID:          data.SellerID,
		FacilityName:      data.FacilityName,
		WeightKg:          data.WeightKg,
		TokensGenerated:   tokens,
		RenewableSource:   data.RenewableSource,
		ProductionDate:    data.ProductionDate,
		Location:          data.Location,
		CertificationType: data.CertificationType,
		PricePerToken:     data.PricePerToken,
		IssuedAt:          time.Now().UTC().Format(time.RFC3339),
		Version:           chainVersion,
		Status:            "issued",
	}

	block, err := l.seal(ctx, payload)
	if err != nil {
		return "", err
	}

	cert := Certificate{
		ID:         certID,
		Hash:       block.Hash,
		BlockIndex: block.Index,
		Data:       payload,
		Status:     StatusActive,
	}

	apply := func() {
		l.certificates[certID] = cert
		l.byHash[block.Hash] = certID
	}
	revert := func() {
		delete(l.certificates, certID)
		delete(l.byHash, block.Hash)
	}

	if err := l.commit(block, apply, revert); err != nil {
		return "", err
	}

	l.evHandler("ledger: issue: certificate[%s] blk[%d] hash[%s]", certID, block.Index, block.Hash)

	return block.Hash, nil
}

// Retire marks the certificate identified by hash as permanently consumed
// by appending a retirement block. The false, nil return covers both an
// unknown hash and a certificate that is already retired; this is the
// double-counting invariant, not an error path, and callers branch on it.
// Sealing and persistence failures are returned as errors so callers can
// tell an infrastructure fault from a domain rejection.
func (l *Ledger) Retire(ctx context.Context, hash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	certID, exists := l.byHash[hash]
	if !exists {
		l.evHandler("ledger: retire: hash[%s] not found", hash)
		return false, nil
	}

	if _, gone := l.retired[certID]; gone {
		l.evHandler("ledger: retire: certificate[%s] already retired, cannot reuse", certID)
		return false, nil
	}

	payload := Payload{
		Type:          TypeRetirement,
		CertificateID: certID,
		OriginalHash:  hash,
		RetiredAt:     time.Now().UTC().Format(time.RFC3339),
		Reason:        retirementReason,
		Status:        "retired",
	}

	block, err := l.seal(ctx, payload)
	if err != nil {
		return false, fmt.Errorf("seal retirement for certificate %s: %w", certID, err)
	}

	prev := l.certificates[certID]

	apply := func() {
		l.retired[certID] = struct{}{}
		cert := prev
		cert.Status = StatusRetired
		cert.RetiredBlockIndex = block.Index
		l.certificates[certID] = cert
	}
	revert := func() {
		delete(l.retired, certID)
		l.certificates[certID] = prev
	}

	if err := l.commit(block, apply, revert); err != nil {
		return false, err
	}

	l.evHandler("ledger: retire: certificate[%s] blk[%d] hash[%s]", certID, block.Index, block.Hash)

	return true, nil
}

// Verify checks a certificate by its issuance hash. Valid requires the
// certificate exists, is not retired, and the recorded block content at
// the recorded index still hashes to the queried value. The content check
// detects tampering independent of a full chain validation.
func (l *Ledger) Verify(hash string) Verification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	certID, exists := l.byHash[hash]
	if !exists {
		return Verification{Reason: ReasonNotFound}
	}

	return l.verify(certID, hash)
}

// VerifyByID checks a certificate by its identifier.
func (l *Ledger) VerifyByID(certID string) Verification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cert, exists := l.certificates[certID]
	if !exists {
		return Verification{Reason: ReasonNotFound}
	}

	return l.verify(certID, cert.Hash)
}

// verify implements the shared verification path. Expects a read lock.
func (l *Ledger) verify(certID string, hash string) Verification {
	if _, gone := l.retired[certID]; gone {
		return Verification{Reason: ReasonRetired}
	}

	cert := l.certificates[certID]
	if cert.BlockIndex >= uint64(len(l.chain)) {
		return Verification{Reason: ReasonNotFound}
	}

	block := l.chain[cert.BlockIndex]
	if block.Hash != hash || block.ContentHash() != hash {
		return Verification{Reason: ReasonTampered}
	}

	return Verification{Valid: true, Payload: block.Payload}
}

// Status reports the lifecycle state for the certificate behind the hash.
func (l *Ledger) Status(hash string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	certID, exists := l.byHash[hash]
	if !exists {
		return StatusNotFound
	}
	if _, gone := l.retired[certID]; gone {
		return StatusRetired
	}
	return StatusActive
}

// Certificate returns a copy of the certificate record by id.
func (l *Ledger) Certificate(certID string) (Certificate, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cert, exists := l.certificates[certID]
	return cert, exists
}

// CertificateByHash returns a copy of the certificate record behind the
// issuance hash.
func (l *Ledger) CertificateByHash(hash string) (Certificate, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	certID, exists := l.byHash[hash]
	if !exists {
		return Certificate{}, false
	}

	cert := l.certificates[certID]
	return cert, true
}
