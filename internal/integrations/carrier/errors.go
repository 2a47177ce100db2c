package carrier

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	KindNotFound ErrorKind = "not_found"
	KindNetwork  ErrorKind = "network"
	KindParse    ErrorKind = "parse"
)

var (
	// ErrUnresolved — текст перевозчика не сопоставился ни с одним адаптером.
	ErrUnresolved = errors.New("carrier unresolved")
	ErrNoData     = errors.New("carrier has no data for shipment")
)

type FetchError struct {
	Kind       ErrorKind
	Carrier    Code
	ShipmentID string
	// Snippet keeps the head of an unrecognized response for diagnosis.
	Snippet string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Kind, e.Carrier, e.ShipmentID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func NewNetworkError(code Code, shipmentID string, err error) *FetchError {
	return &FetchError{Kind: KindNetwork, Carrier: code, ShipmentID: shipmentID, Err: err}
}

func NewParseError(code Code, shipmentID string, snippet []byte, err error) *FetchError {
	s := string(snippet)
	if len(s) > 256 {
		s = s[:256]
	}
	return &FetchError{Kind: KindParse, Carrier: code, ShipmentID: shipmentID, Snippet: s, Err: err}
}

func NewNotFoundError(code Code, shipmentID string) *FetchError {
	return &FetchError{Kind: KindNotFound, Carrier: code, ShipmentID: shipmentID, Err: ErrNoData}
}

// AsFetchError normalizes any adapter error. Timeouts and unknown errors are network errors.
func AsFetchError(code Code, shipmentID string, err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewNetworkError(code, shipmentID, errors.Wrap(err, "timeout"))
	}
	return NewNetworkError(code, shipmentID, err)
}
