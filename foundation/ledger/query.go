package ledger

import (
	"sort"
	"strings"
	"time"
)

// Set of transaction record types returned by the read queries.
const (
	TxCertificateIssued  = "certificate_issued"
	TxCertificateRetired = "certificate_retired"
	TxGenesis            = "genesis_block"
)

// Transaction is a flattened view of one chain event for query responses.
type Transaction struct {
	Type              string  `json:"type"`
	Timestamp         string  `json:"timestamp"`
	BlockIndex        uint64  `json:"block_index"`
	BlockHash         string  `json:"block_hash"`
	CertificateID     string  `json:"certificate_id,omitempty"`
	SellerID          string  `json:"seller_id,omitempty"`
	FacilityName      string  `json:"facility_name,omitempty"`
	WeightKg          float64 `json:"hydrogen_weight_kg,omitempty"`
	TokensGenerated   int     `json:"tokens_generated,omitempty"`
	RenewableSource   string  `json:"renewable_source,omitempty"`
	Location          string  `json:"location,omitempty"`
	CertificationType string  `json:"certification_type,omitempty"`
	PricePerToken     float64 `json:"price_per_token,omitempty"`
	OriginalHash      string  `json:"original_hash,omitempty"`
	Reason            string  `json:"reason,omitempty"`
	Status            string  `json:"status"`
}

// Info is the summary returned by ChainInfo.
type Info struct {
	TotalBlocks         int    `json:"total_blocks"`
	TotalCertificates   int    `json:"total_certificates"`
	ActiveCertificates  int    `json:"active_certificates"`
	RetiredCertificates int    `json:"retired_certificates"`
	Difficulty          int    `json:"difficulty"`
	LastBlockHash       string `json:"last_block_hash"`
	ChainValid          bool   `json:"chain_valid"`
	LastUpdated         string `json:"last_updated"`
}

// ChainInfo returns chain statistics including a full integrity audit.
func (l *Ledger) ChainInfo() Info {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Info{
		TotalBlocks:         len(l.chain),
		TotalCertificates:   len(l.certificates),
		ActiveCertificates:  len(l.certificates) - len(l.retired),
		RetiredCertificates: len(l.retired),
		Difficulty:          l.difficulty,
		LastBlockHash:       l.chain[len(l.chain)-1].Hash,
		ChainValid:          validateBlocks(l.chain, l.difficulty) == nil,
		LastUpdated:         time.Now().UTC().Format(time.RFC3339),
	}
}

// TransactionHistory returns up to limit transaction records from the
// whole chain, newest first.
func (l *Ledger) TransactionHistory(limit int) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	txs := make([]Transaction, 0, len(l.chain))
	for _, block := range l.chain {
		txs = append(txs, toTransaction(block))
	}

	sortNewestFirst(txs)

	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs
}

// UserTransactions returns every transaction involving the seller, newest
// first. Retirements are attributed to the certificate's original seller.
func (l *Ledger) UserTransactions(sellerID string) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var txs []Transaction
	for _, block := range l.chain {
		switch block.Payload.Type {
		case TypeCertificate:
			if block.Payload.SellerID == sellerID {
				txs = append(txs, toTransaction(block))
			}

		case TypeRetirement:
			cert, exists := l.certificates[block.Payload.CertificateID]
			if exists && cert.Data.SellerID == sellerID {
				txs = append(txs, toTransaction(block))
			}
		}
	}

	sortNewestFirst(txs)
	return txs
}

// CertificateTransactions returns the issuance and, when present, the
// retirement record for one certificate in chain order.
func (l *Ledger) CertificateTransactions(certID string) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, exists := l.certificates[certID]; !exists {
		return nil
	}

	var txs []Transaction
	for _, block := range l.chain {
		if block.Payload.CertificateID == certID {
			txs = append(txs, toTransaction(block))
		}
	}
	return txs
}

// Search returns issuance records whose facility, location, source,
// certification type or id contains the query, case-insensitively,
// newest first.
func (l *Ledger) Search(query string) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	query = strings.ToLower(query)

	var txs []Transaction
	for _, block := range l.chain {
		if block.Payload.Type != TypeCertificate {
			continue
		}

		p := block.Payload
		match := strings.Contains(strings.ToLower(p.FacilityName), query) ||
			strings.Contains(strings.ToLower(p.Location), query) ||
			strings.Contains(strings.ToLower(p.RenewableSource), query) ||
			strings.Contains(strings.ToLower(p.CertificationType), query) ||
			strings.Contains(strings.ToLower(p.CertificateID), query)

		if match {
			txs = append(txs, toTransaction(block))
		}
	}

	sortNewestFirst(txs)
	return txs
}

// RecentActivity returns the transactions from blocks sealed within the
// last hours, newest first.
func (l *Ledger) RecentActivity(hours int) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Unix()

	var txs []Transaction
	for _, block := range l.chain {
		if block.Timestamp < cutoff || block.Payload.Type == TypeGenesis {
			continue
		}
		txs = append(txs, toTransaction(block))
	}

	sortNewestFirst(txs)
	return txs
}

// Action is one entry in a certificate's condensed history.
type Action struct {
	Action     string `json:"action"`
	Timestamp  string `json:"timestamp"`
	Hash       string `json:"hash"`
	BlockIndex uint64 `json:"block_index"`
	Reason     string `json:"reason,omitempty"`
}

// CertificateHistory returns the issued/retired actions for a certificate
// in the order they happened.
func (l *Ledger) CertificateHistory(certID string) []Action {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cert, exists := l.certificates[certID]
	if !exists {
		return nil
	}

	history := []Action{{
		Action:     "issued",
		Timestamp:  cert.Data.IssuedAt,
		Hash:       cert.Hash,
		BlockIndex: cert.BlockIndex,
	}}

	if _, gone := l.retired[certID]; gone {
		block := l.chain[cert.RetiredBlockIndex]
		history = append(history, Action{
			Action:     "retired",
			Timestamp:  block.Payload.RetiredAt,
			Hash:       block.Hash,
			BlockIndex: block.Index,
			Reason:     block.Payload.Reason,
		})
	}

	return history
}

// =============================================================================

// Analytics is the aggregate view over the whole certificate population.
type Analytics struct {
	Summary   Summary        `json:"blockchain_summary"`
	Breakdown Breakdown      `json:"certificate_breakdown"`
	Tokens    TokenEconomics `json:"token_economics"`
	Timeline  Timeline       `json:"timeline"`
}

// Summary mirrors ChainInfo inside the analytics document.
type Summary struct {
	TotalBlocks         int   `json:"total_blocks"`
	TotalCertificates   int   `json:"total_certificates"`
	ActiveCertificates  int   `json:"active_certificates"`
	RetiredCertificates int   `json:"retired_certificates"`
	ChainValid          bool  `json:"chain_valid"`
	Difficulty          int   `json:"difficulty"`
	LastBlockTime       int64 `json:"last_block_time"`
}

// Breakdown counts certificates along their categorical dimensions.
type Breakdown struct {
	BySource            map[string]int `json:"by_source"`
	ByLocation          map[string]int `json:"by_location"`
	ByCertificationType map[string]int `json:"by_certification_type"`
	ByStatus            map[string]int `json:"by_status"`
}

// TokenEconomics totals the token volumes and pricing.
type TokenEconomics struct {
	TotalTokensIssued    int     `json:"total_tokens_issued"`
	TotalTokensRetired   int     `json:"total_tokens_retired"`
	ActiveTokens         int     `json:"active_tokens"`
	AveragePricePerToken float64 `json:"average_price_per_token"`
}

// Timeline bounds the issuance activity in time.
type Timeline struct {
	FirstCertificate  string `json:"first_certificate,omitempty"`
	LatestCertificate string `json:"latest_certificate,omitempty"`
	TotalDaysActive   int    `json:"total_days_active"`
}

// Analytics computes the full aggregate view in one scan over the
// certificate index.
func (l *Ledger) Analytics() Analytics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a := Analytics{
		Summary: Summary{
			TotalBlocks:         len(l.chain),
			TotalCertificates:   len(l.certificates),
			ActiveCertificates:  len(l.certificates) - len(l.retired),
			RetiredCertificates: len(l.retired),
			ChainValid:          validateBlocks(l.chain, l.difficulty) == nil,
			Difficulty:          l.difficulty,
			LastBlockTime:       l.chain[len(l.chain)-1].Timestamp,
		},
		Breakdown: Breakdown{
			BySource:            make(map[string]int),
			ByLocation:          make(map[string]int),
			ByCertificationType: make(map[string]int),
			ByStatus: map[string]int{
				StatusActive:  len(l.certificates) - len(l.retired),
				StatusRetired: len(l.retired),
			},
		},
	}

	var totalPrice float64
	var first, latest string

	for certID, cert := range l.certificates {
		data := cert.Data

		a.Breakdown.BySource[orUnknown(data.RenewableSource)]++
		a.Breakdown.ByLocation[orUnknown(data.Location)]++
		a.Breakdown.ByCertificationType[orUnknown(data.CertificationType)]++

		a.Tokens.TotalTokensIssued += data.TokensGenerated
		totalPrice += float64(data.TokensGenerated) * data.PricePerToken

		if _, gone := l.retired[certID]; gone {
			a.Tokens.TotalTokensRetired += data.TokensGenerated
		} else {
			a.Tokens.ActiveTokens += data.TokensGenerated
		}

		if data.IssuedAt != "" {
			if first == "" || data.IssuedAt < first {
				first = data.IssuedAt
			}
			if data.IssuedAt > latest {
				latest = data.IssuedAt
			}
		}
	}

	if a.Tokens.TotalTokensIssued > 0 {
		a.Tokens.AveragePricePerToken = totalPrice / float64(a.Tokens.TotalTokensIssued)
	}

	a.Timeline.FirstCertificate = first
	a.Timeline.LatestCertificate = latest
	if first != "" && latest != "" {
		ft, errf := time.Parse(time.RFC3339, first)
		lt, errl := time.Parse(time.RFC3339, latest)
		if errf == nil && errl == nil {
			a.Timeline.TotalDaysActive = int(lt.Sub(ft).Hours() / 24)
		}
	}

	return a
}

// =============================================================================

// toTransaction flattens a block into its query record.
func toTransaction(block Block) Transaction {
	blockTime := time.Unix(block.Timestamp, 0).UTC().Format(time.RFC3339)

	switch block.Payload.Type {
	case TypeCertificate:
		ts := block.Payload.IssuedAt
		if ts == "" {
			ts = blockTime
		}
		return Transaction{
			Type:              TxCertificateIssued,
			Timestamp:         ts,
			BlockIndex:        block.Index,
			BlockHash:         block.Hash,
			CertificateID:     block.Payload.CertificateID,
			SellerID:          block.Payload.SellerID,
			FacilityName:      block.Payload.FacilityName,
			WeightKg:          block.Payload.WeightKg,
			TokensGenerated:   block.Payload.TokensGenerated,
			RenewableSource:   block.Payload.RenewableSource,
			Location:          block.Payload.Location,
			CertificationType: block.Payload.CertificationType,
			PricePerToken:     block.Payload.PricePerToken,
			Status:            "issued",
		}

	case TypeRetirement:
		ts := block.Payload.RetiredAt
		if ts == "" {
			ts = blockTime
		}
		return Transaction{
			Type:          TxCertificateRetired,
			Timestamp:     ts,
			BlockIndex:    block.Index,
			BlockHash:     block.Hash,
			CertificateID: block.Payload.CertificateID,
			OriginalHash:  block.Payload.OriginalHash,
			Reason:        block.Payload.Reason,
			Status:        "retired",
		}

	default:
		return Transaction{
			Type:       TxGenesis,
			Timestamp:  blockTime,
			BlockIndex: block.Index,
			BlockHash:  block.Hash,
			Status:     "created",
		}
	}
}

// sortNewestFirst orders the records by their RFC3339 timestamps. Equal
// timestamps keep chain order via the stable sort.
func sortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
