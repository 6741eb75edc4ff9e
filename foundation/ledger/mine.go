package ledger

import (
	"context"
)

// Seal constructs the next block for the given payload and performs the
// work of finding a nonce whose hash satisfies the difficulty. The nonce
// search starts at zero and is single threaded; there is no competing
// miner to race against. The context allows the caller to cancel a
// long-running search.
func Seal(ctx context.Context, index uint64, timestamp int64, payload Payload, previousHash string, difficulty int, ev EventHandler) (Block, error) {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	b := Block{
		Index:        index,
		Timestamp:    timestamp,
		Payload:      payload,
		PreviousHash: previousHash,
	}

	var attempts uint64
	for {
		attempts++
		if attempts%100_000 == 0 {
			ev("miner: seal: blk[%d]: attempts[%d]", index, attempts)
		}

		if ctx.Err() != nil {
			ev("miner: seal: blk[%d]: CANCELLED", index)
			return Block{}, ctx.Err()
		}

		hash := b.ContentHash()
		if !isHashSolved(difficulty, hash) {
			b.Nonce++
			continue
		}

		b.Hash = hash
		ev("miner: seal: blk[%d]: SOLVED: attempts[%d]: hash[%s]", index, attempts, hash)

		return b, nil
	}
}
