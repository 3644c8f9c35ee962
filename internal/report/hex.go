package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// Hex is an address or offset serialized as a "0x"-prefixed lowercase string.
type Hex uint64

func (h Hex) String() string {
	return fmt.Sprintf("0x%x", uint64(h))
}

// MarshalText implements encoding.TextMarshaler so Hex also works as a map key.
func (h Hex) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText accepts "0x"-prefixed hex or plain decimal.
func (h *Hex) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	var (
		v   uint64
		err error
	)
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		v, err = strconv.ParseUint(rest, 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return fmt.Errorf("invalid hex value %q: %w", s, err)
	}
	*h = Hex(v)
	return nil
}

// UnmarshalJSON accepts a hex string or a bare JSON number.
func (h *Hex) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return h.UnmarshalText([]byte(s))
	}
	return h.UnmarshalText(data)
}

// JSONSchema describes Hex as a pattern-constrained string.
func (Hex) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:    "string",
		Pattern: "^0x[0-9a-f]+$",
	}
}

// HexPtr returns a pointer to Hex(v).
func HexPtr(v uint64) *Hex {
	h := Hex(v)
	return &h
}
