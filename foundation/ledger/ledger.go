// Package ledger is the core API for the certificate chain. It owns the
// ordered block sequence, the certificate and retired-set indices, and the
// durable snapshot, and implements the issue/retire/verify/query
// operations on top of them.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// defaultDifficulty is used when the configuration does not specify how
// many leading zero hex characters a sealed hash must carry.
const defaultDifficulty = 4

// chainVersion is recorded in issuance payloads and the genesis block.
const chainVersion = "1.0"

// EventHandler defines a function that is called when events occur in the
// processing of sealing and persisting blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct the ledger.
type Config struct {
	Storage    Storage
	Difficulty int
	EvHandler  EventHandler
}

// Ledger manages the certificate chain. All writes are serialized under a
// single writer lock: read tip, mine, validate, append, persist is one
// critical section. Readers share the lock and never observe a partially
// appended block since a block only becomes visible after it is validated
// and persisted.
type Ledger struct {
	mu         sync.RWMutex
	difficulty int
	storage    Storage
	evHandler  EventHandler

	chain        []Block
	certificates map[string]Certificate
	byHash       map[string]string
	retired      map[string]struct{}
}

// New constructs a ledger from the configured storage. An existing
// snapshot document is loaded with its indices rebuilt strictly by
// replaying the chain; otherwise a genesis block is sealed and persisted.
func New(cfg Config) (*Ledger, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}

	difficulty := cfg.Difficulty
	if difficulty <= 0 {
		difficulty = defaultDifficulty
	}

	l := Ledger{
		difficulty:   difficulty,
		storage:      cfg.Storage,
		evHandler:    ev,
		certificates: make(map[string]Certificate),
		byHash:       make(map[string]string),
		retired:      make(map[string]struct{}),
	}

	snapshot, exists, err := cfg.Storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	switch {
	case exists:

		// The persisted accelerator maps are not trusted. Replaying the
		// chain re-derives every hash, checks linkage and proof of work,
		// and rebuilds the indices from the block log alone.
		if err := l.replay(snapshot.Chain); err != nil {
			return nil, err
		}
		ev("ledger: new: loaded: blocks[%d] certificates[%d] retired[%d]", len(l.chain), len(l.certificates), len(l.retired))

	default:
		if err := l.createGenesis(context.Background()); err != nil {
			return nil, err
		}
		ev("ledger: new: genesis block created: hash[%s]", l.chain[0].Hash)
	}

	return &l, nil
}

// Difficulty returns the configured proof of work difficulty.
func (l *Ledger) Difficulty() int {
	return l.difficulty
}

// Height returns the number of blocks in the chain.
func (l *Ledger) Height() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.chain)
}

// LatestBlock returns a copy of the current tip.
func (l *Ledger) LatestBlock() Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain[len(l.chain)-1]
}

// Append seals the payload into the next block and commits it. The
// returned value is the new block's content hash.
func (l *Ledger) Append(ctx context.Context, payload Payload) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	block, err := l.seal(ctx, payload)
	if err != nil {
		return "", err
	}

	if err := l.commit(block, nil, nil); err != nil {
		return "", err
	}

	return block.Hash, nil
}

// ValidateChain re-derives every block's hash and checks linkage and proof
// of work for the whole sequence. O(n) scan used for integrity audits.
func (l *Ledger) ValidateChain() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := validateBlocks(l.chain, l.difficulty); err != nil {
		l.evHandler("ledger: validatechain: ERROR: %s", err)
		return false
	}

	return true
}

// Reset drops the chain and indices and reseals a fresh genesis block.
// Intended for operational resets and tests. If the new genesis cannot be
// persisted the previous in-memory state is restored, so the ledger never
// serves an empty chain; the snapshot document is rewritten on the next
// successful commit.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevChain := l.chain
	prevCerts := l.certificates
	prevByHash := l.byHash
	prevRetired := l.retired

	if err := l.storage.Reset(); err != nil {
		return fmt.Errorf("reset storage: %w", err)
	}

	l.chain = nil
	l.certificates = make(map[string]Certificate)
	l.byHash = make(map[string]string)
	l.retired = make(map[string]struct{})

	if err := l.createGenesis(ctx); err != nil {
		l.chain = prevChain
		l.certificates = prevCerts
		l.byHash = prevByHash
		l.retired = prevRetired
		return err
	}

	return nil
}

// =============================================================================

// createGenesis seals and persists the first block in the chain. The
// genesis block is mined like any other so every block on chain satisfies
// the configured proof of work. Expects no blocks to exist.
func (l *Ledger) createGenesis(ctx context.Context) error {
	payload := Payload{
		Type:    TypeGenesis,
		Message: "green hydrogen credit ledger genesis block",
		Version: chainVersion,
	}

	block, err := Seal(ctx, 0, time.Now().UTC().Unix(), payload, ZeroHash, l.difficulty, l.evHandler)
	if err != nil {
		return fmt.Errorf("seal genesis: %w", err)
	}

	return l.commit(block, nil, nil)
}

// seal mines the next block for the payload against the current tip and
// independently re-validates the result before it can be committed.
// Expects the write lock to be held.
func (l *Ledger) seal(ctx context.Context, payload Payload) (Block, error) {
	tip := l.chain[len(l.chain)-1]

	block, err := Seal(ctx, tip.Index+1, time.Now().UTC().Unix(), payload, tip.Hash, l.difficulty, l.evHandler)
	if err != nil {
		return Block{}, err
	}

	// Recompute the hash and check the linkage and the proof of work
	// prefix before accepting the block.
	if err := block.validate(tip, l.difficulty); err != nil {
		return Block{}, fmt.Errorf("block %d: %s: %w", block.Index, err, ErrIntegrity)
	}

	return block, nil
}

// commit appends the sealed block, applies the index updates and rewrites
// the durable snapshot. If the snapshot write fails the in-memory append
// is rolled back so an unpersisted block is never visible to readers.
// Expects the write lock to be held.
func (l *Ledger) commit(block Block, apply func(), revert func()) error {
	l.chain = append(l.chain, block)
	if apply != nil {
		apply()
	}

	if err := l.persist(); err != nil {
		l.chain = l.chain[:len(l.chain)-1]
		if revert != nil {
			revert()
		}
		return fmt.Errorf("persist block %d: %w", block.Index, err)
	}

	l.evHandler("ledger: commit: blk[%d] hash[%s] type[%s]", block.Index, block.Hash, block.Payload.Type)

	return nil
}

// persist rewrites the full snapshot document. Synchronous and blocking
// on the writer. Expects the write lock to be held.
func (l *Ledger) persist() error {
	snapshot := Snapshot{
		Chain:               l.chain,
		Certificates:        l.certificates,
		RetiredCertificates: make([]string, 0, len(l.retired)),
		LastUpdated:         time.Now().UTC().Format(time.RFC3339),
		TotalBlocks:         len(l.chain),
		TotalCertificates:   len(l.certificates),
		RetiredCount:        len(l.retired),
	}
	for id := range l.retired {
		snapshot.RetiredCertificates = append(snapshot.RetiredCertificates, id)
	}

	return l.storage.Save(snapshot)
}

// replay validates the supplied blocks as a complete chain and rebuilds
// the certificate and retired-set indices from the block log alone.
// Expects the write lock to be held (or a ledger not yet shared).
func (l *Ledger) replay(blocks []Block) error {
	if err := validateBlocks(blocks, l.difficulty); err != nil {
		return fmt.Errorf("%s: %w", err, ErrCorruptChain)
	}

	certificates := make(map[string]Certificate)
	byHash := make(map[string]string)
	retired := make(map[string]struct{})

	for _, block := range blocks {
		switch block.Payload.Type {
		case TypeCertificate:
			id := block.Payload.CertificateID
			certificates[id] = Certificate{
				ID:         id,
				Hash:       block.Hash,
				BlockIndex: block.Index,
				Data:       block.Payload,
				Status:     StatusActive,
			}
			byHash[block.Hash] = id

		case TypeRetirement:
			id := block.Payload.CertificateID
			cert, exists := certificates[id]
			if !exists {
				return fmt.Errorf("block %d retires unknown certificate %s: %w", block.Index, id, ErrCorruptChain)
			}
			if _, gone := retired[id]; gone {
				return fmt.Errorf("block %d retires certificate %s twice: %w", block.Index, id, ErrCorruptChain)
			}
			retired[id] = struct{}{}
			cert.Status = StatusRetired
			cert.RetiredBlockIndex = block.Index
			certificates[id] = cert
		}
	}

	l.chain = blocks
	l.certificates = certificates
	l.byHash = byHash
	l.retired = retired

	return nil
}

// validateBlocks walks the sequence checking every block against its
// predecessor.
func validateBlocks(blocks []Block, difficulty int) error {
	if len(blocks) == 0 {
		return fmt.Errorf("chain is empty")
	}

	var prev Block
	for i, block := range blocks {
		if block.Index != uint64(i) {
			return fmt.Errorf("block %d: out of order index %d", i, block.Index)
		}
		if err := block.validate(prev, difficulty); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		prev = block
	}

	return nil
}
