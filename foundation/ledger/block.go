package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ZeroHash is the previous-hash value recorded by the genesis block.
const ZeroHash = "0"

// Payload type tags as they are recorded on chain. The tags match the
// document format this ledger has always persisted, so an existing chain
// file remains readable.
const (
	TypeGenesis     = "genesis"
	TypeCertificate = "hydrogen_credit_certificate"
	TypeRetirement  = "certificate_retirement"
)

// Payload is the variant record sealed into a block. Exactly one group of
// fields is populated depending on Type; the zero fields are elided from
// the canonical JSON so the content hash stays stable.
type Payload struct {
	Type string `json:"type"`

	// Genesis fields.
	Message string `json:"message,omitempty"`
	Version string `json:"version,omitempty"`

	// Issuance fields.
	CertificateID     string  `json:"certificate_id,omitempty"`
	SellerID          string  `json:"seller_id,omitempty"`
	FacilityName      string  `json:"facility_name,omitempty"`
	WeightKg          float64 `json:"hydrogen_weight_kg,omitempty"`
	TokensGenerated   int     `json:"tokens_generated,omitempty"`
	RenewableSource   string  `json:"renewable_source,omitempty"`
	ProductionDate    string  `json:"production_date,omitempty"`
	Location          string  `json:"location,omitempty"`
	CertificationType string  `json:"certification_type,omitempty"`
	PricePerToken     float64 `json:"price_per_token,omitempty"`
	IssuedAt          string  `json:"issued_at,omitempty"`

	// Retirement fields.
	OriginalHash string `json:"original_hash,omitempty"`
	RetiredAt    string `json:"retired_at,omitempty"`
	Reason       string `json:"reason,omitempty"`

	Status string `json:"status,omitempty"`
}

// Block is one immutable hash-linked unit of the ledger. A block is never
// mutated after it has been sealed by the miner and appended.
type Block struct {
	Index        uint64  `json:"index"`
	Timestamp    int64   `json:"timestamp"`
	Payload      Payload `json:"data"`
	PreviousHash string  `json:"previous_hash"`
	Nonce        uint64  `json:"nonce"`
	Hash         string  `json:"hash"`
}

// blockContent is the canonical hash input. The stored Hash field is
// excluded; everything a validator needs to recompute the hash is here.
// Field order is fixed by this struct and must not change.
type blockContent struct {
	Index        uint64  `json:"index"`
	Timestamp    int64   `json:"timestamp"`
	Payload      Payload `json:"data"`
	PreviousHash string  `json:"previous_hash"`
	Nonce        uint64  `json:"nonce"`
}

// ComputeHash returns the sha256 hex digest over the canonical JSON form of
// the block content. Any validator can call this to check a block without
// trusting a stored nonce/hash pair.
func ComputeHash(index uint64, timestamp int64, payload Payload, previousHash string, nonce uint64) string {
	content := blockContent{
		Index:        index,
		Timestamp:    timestamp,
		Payload:      payload,
		PreviousHash: previousHash,
		Nonce:        nonce,
	}

	data, err := json.Marshal(content)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ContentHash re-derives the hash for the block's current content.
func (b Block) ContentHash() string {
	return ComputeHash(b.Index, b.Timestamp, b.Payload, b.PreviousHash, b.Nonce)
}

// validate checks the block against its predecessor: content hash, linkage
// and the proof of work prefix. For the genesis block prev is ignored.
func (b Block) validate(prev Block, difficulty int) error {
	if b.Index == 0 {
		if b.PreviousHash != ZeroHash {
			return fmt.Errorf("genesis previous hash, got %q, exp %q", b.PreviousHash, ZeroHash)
		}
	} else {
		if b.Index != prev.Index+1 {
			return fmt.Errorf("block is not the next index, got %d, exp %d", b.Index, prev.Index+1)
		}
		if b.PreviousHash != prev.Hash {
			return fmt.Errorf("previous hash doesn't match parent, got %s, exp %s", b.PreviousHash, prev.Hash)
		}
	}

	hash := b.ContentHash()
	if hash != b.Hash {
		return fmt.Errorf("content hash mismatch, got %s, exp %s", hash, b.Hash)
	}

	if !isHashSolved(difficulty, hash) {
		return fmt.Errorf("hash %s does not satisfy difficulty %d", hash, difficulty)
	}

	return nil
}

// isHashSolved checks the hash complies with the POW rules. We need to
// match a difficulty number of leading zero hex characters.
func isHashSolved(difficulty int, hash string) bool {
	const match = "0000000000000000"

	if difficulty > len(match) {
		difficulty = len(match)
	}
	if len(hash) != 64 {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
