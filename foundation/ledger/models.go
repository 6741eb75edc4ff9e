package ledger

// Set of certificate statuses.
const (
	StatusActive   = "active"
	StatusRetired  = "retired"
	StatusNotFound = "not_found"
)

// CertificateData is the caller supplied input to Issue. The validate tags
// define the required fields; validation failures surface as FieldErrors
// before any block is mined.
type CertificateData struct {
	SellerID          string  `json:"seller_id" validate:"required"`
	FacilityName      string  `json:"facility_name" validate:"required"`
	WeightKg          float64 `json:"hydrogen_weight_kg" validate:"required,gt=0"`
	TokensGenerated   int     `json:"tokens_generated" validate:"omitempty,gte=0"`
	RenewableSource   string  `json:"renewable_source" validate:"required"`
	ProductionDate    string  `json:"production_date" validate:"required"`
	Location          string  `json:"location" validate:"required"`
	CertificationType string  `json:"certification_type" validate:"required"`
	PricePerToken     float64 `json:"price_per_token" validate:"gte=0"`
}

// Certificate is the derived lifecycle record for one issued identifier.
// It spans the issuance block and, once retired, the retirement block. The
// certificate index is a cache over the block log, owned exclusively by
// the Ledger and always rebuilt by replay.
type Certificate struct {
	ID                string  `json:"id"`
	Hash              string  `json:"hash"`
	BlockIndex        uint64  `json:"block_index"`
	Data              Payload `json:"data"`
	Status            string  `json:"status"`
	RetiredBlockIndex uint64  `json:"retired_block_index,omitempty"`
}

// Snapshot is the single durable document rewritten on every append. The
// certificate and retired-set accelerators are written for external
// consumers of the file, but on load they are ignored and rebuilt by
// replaying the chain.
type Snapshot struct {
	Chain               []Block                `json:"chain"`
	Certificates        map[string]Certificate `json:"certificates"`
	RetiredCertificates []string               `json:"retired_certificates"`
	LastUpdated         string                 `json:"last_updated"`
	TotalBlocks         int                    `json:"total_blocks"`
	TotalCertificates   int                    `json:"total_certificates"`
	RetiredCount        int                    `json:"retired_count"`
}

// Storage interface represents the behavior required to be implemented by
// any package providing durable support for the snapshot document.
type Storage interface {
	Save(snapshot Snapshot) error
	Load() (snapshot Snapshot, exists bool, err error)
	Reset() error
}
