package ledger

import (
	"fmt"
)

// Export returns a copy of the full chain for backup or transfer to
// another ledger instance.
func (l *Ledger) Export() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]Block, len(l.chain))
	copy(blocks, l.chain)
	return blocks
}

// Import replaces the chain with the supplied blocks. The sequence is
// fully re-validated and the certificate and retired-set indices are
// rebuilt strictly by replay; index metadata supplied from outside is
// never trusted. On any failure the previous state is kept.
func (l *Ledger) Import(blocks []Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevChain := l.chain
	prevCerts := l.certificates
	prevByHash := l.byHash
	prevRetired := l.retired

	imported := make([]Block, len(blocks))
	copy(imported, blocks)

	if err := l.replay(imported); err != nil {
		return err
	}

	if err := l.persist(); err != nil {
		l.chain = prevChain
		l.certificates = prevCerts
		l.byHash = prevByHash
		l.retired = prevRetired
		return fmt.Errorf("persist imported chain: %w", err)
	}

	l.evHandler("ledger: import: blocks[%d] certificates[%d] retired[%d]", len(l.chain), len(l.certificates), len(l.retired))

	return nil
}
