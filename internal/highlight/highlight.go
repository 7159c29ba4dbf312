package highlight

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgallion1/folio/internal/address"
)

// Highlight is a host-owned highlight record.
type Highlight struct {
	ID    string        `json:"id"`
	Range address.Range `json:"range"`
}

// UnmarshalJSON accepts the range under "range" or the older "cfi" key, as
// an object or as a JSON string holding the object.
func (h *Highlight) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Range json.RawMessage `json:"range"`
		CFI   json.RawMessage `json:"cfi"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: highlight: %v", address.ErrMalformed, err)
	}
	id, err := parseID(raw.ID)
	if err != nil {
		return err
	}
	src := raw.Range
	if len(src) == 0 || string(src) == "null" {
		src = raw.CFI
	}
	if len(src) == 0 || string(src) == "null" {
		return fmt.Errorf("%w: highlight %q has no range", address.ErrMalformed, id)
	}
	r, err := address.ParseRange(src)
	if err != nil {
		return fmt.Errorf("highlight %q: %w", id, err)
	}
	h.ID, h.Range = id, r
	return nil
}

// parseID accepts string or numeric ids; hosts that key highlights by
// database row send numbers.
func parseID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: highlight without id", address.ErrMalformed)
}

// ParseList decodes a highlight list, keeping every well-formed record. The
// returned error joins the per-record failures.
func ParseList(data []byte) ([]Highlight, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: highlight list: %v", address.ErrMalformed, err)
	}
	var (
		out  []Highlight
		errs []error
	)
	for i, raw := range raws {
		var h Highlight
		if err := json.Unmarshal(raw, &h); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, h)
	}
	return out, errors.Join(errs...)
}
