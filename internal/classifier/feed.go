package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
)

// DecodeFailure reports a feed element that could not be decoded.
type DecodeFailure struct {
	Index int
	Err   error
}

// DecodeOrders accepts a single order object, an array of orders, or an
// `{"orders": [...]}` (list) / `{"order": {...}}` (single) envelope. Elements
// are decoded one by one so a malformed record does not drop its neighbours.
func DecodeOrders(data []byte) ([]model.RawOrder, []DecodeFailure, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("empty payload")
	}

	var elems []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, nil, fmt.Errorf("decode order list: %w", err)
		}
	case '{':
		var envelope struct {
			Orders []json.RawMessage `json:"orders"`
			Order  json.RawMessage   `json:"order"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, nil, fmt.Errorf("decode order payload: %w", err)
		}
		switch {
		case envelope.Orders != nil:
			elems = envelope.Orders
		case len(envelope.Order) > 0:
			elems = []json.RawMessage{envelope.Order}
		default:
			elems = []json.RawMessage{data}
		}
	default:
		return nil, nil, fmt.Errorf("unexpected payload starting with %q", data[0])
	}

	orders := make([]model.RawOrder, 0, len(elems))
	var failures []DecodeFailure
	for i, elem := range elems {
		var raw model.RawOrder
		if err := json.Unmarshal(elem, &raw); err != nil {
			// a mistyped field leaves the rest of the record decoded; keep it
			// and let classification fall back to defaults
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				failures = append(failures, DecodeFailure{Index: i, Err: err})
				continue
			}
		}
		orders = append(orders, raw)
	}
	return orders, failures, nil
}
