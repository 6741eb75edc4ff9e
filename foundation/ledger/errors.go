package ledger

import (
	"encoding/json"
	"errors"
)

// Set of error variables for the ledger operations.
var (
	// ErrDuplicateID is returned when a freshly generated certificate id
	// already exists in the index. Callers retry with a new identifier.
	ErrDuplicateID = errors.New("certificate id already exists")

	// ErrIntegrity is returned when a freshly sealed block fails its own
	// re-validation. This should never happen under the single writer
	// discipline; the check exists to catch miner or linkage defects
	// before anything is persisted.
	ErrIntegrity = errors.New("block failed self-validation")

	// ErrCorruptChain is returned when a loaded or imported chain fails
	// the full re-validation replay.
	ErrCorruptChain = errors.New("chain validation failed")
)

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// FieldErrors represents a collection of field errors from validating the
// certificate data. It fails an Issue call before any mutation occurs.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	d, err := json.Marshal(fe)
	if err != nil {
		return err.Error()
	}
	return string(d)
}

// Fields returns the field errors as a map for API responses.
func (fe FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, fld := range fe {
		m[fld.Field] = fld.Error
	}
	return m
}

// IsFieldErrors checks if an error of type FieldErrors exists.
func IsFieldErrors(err error) bool {
	var fe FieldErrors
	return errors.As(err, &fe)
}

// GetFieldErrors returns a copy of the FieldErrors.
func GetFieldErrors(err error) FieldErrors {
	var fe FieldErrors
	if !errors.As(err, &fe) {
		return nil
	}
	return fe
}
