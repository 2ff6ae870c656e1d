package ingestion

import (
	"errors"
	"fmt"
)

// Kind classifies why an ingestion run failed.
type Kind int

const (
	// KindValidation means the input was rejected before any I/O.
	KindValidation Kind = iota + 1
	// KindNotFound means the provider has no data for the symbol.
	KindNotFound
	// KindProvider covers every other fetch or normalization failure.
	KindProvider
	// KindStorage means a warehouse write failed.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindProvider:
		return "provider"
	case KindStorage:
		return "storage"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the only error type Ingest returns.
type Error struct {
	Kind   Kind
	Symbol string
	Err    error
}

func (e *Error) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("ingest: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ingest %s: %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of an ingestion error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}

func fail(kind Kind, symbol string, err error) *Error {
	return &Error{Kind: kind, Symbol: symbol, Err: err}
}
