// Package wireformat handles the ledger's dynamic integer field widths
// (spec.md §4.A, §6.2, §9): JSON fields that can exceed 53 bits of
// precision arrive as either a JSON number or a decimal string, and callers
// must be able to parse either form into a wide integer without loss.
package wireformat

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// Uint64 decodes cleanly from either a JSON number or a decimal string and
// always holds the full 64-bit value. Ticks, amounts, and log ids all use
// this type on the wire.
type Uint64 uint64

// UnmarshalJSON accepts `12345` or `"12345"`.
func (u *Uint64) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("wireformat: empty uint64 field")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("wireformat: decoding string uint64: %w", err)
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("wireformat: parsing decimal string %q: %w", s, err)
		}
		*u = Uint64(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("wireformat: decoding numeric uint64: %w", err)
	}
	*u = Uint64(v)
	return nil
}

// MarshalJSON normalizes the value back to a JSON number when it fits
// safely in a float64-backed JSON number (< 2^53), and to a decimal string
// otherwise, matching the wire convention described in §6.2.
func (u Uint64) MarshalJSON() ([]byte, error) {
	const maxSafeInteger = uint64(1) << 53
	if uint64(u) < maxSafeInteger {
		return json.Marshal(uint64(u))
	}
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

// Value returns the plain uint64.
func (u Uint64) Value() uint64 { return uint64(u) }

// Big returns the value as a *big.Int, for arithmetic that must never
// silently wrap (tick/amount arithmetic across the builder and queue).
func (u Uint64) Big() *big.Int {
	return new(big.Int).SetUint64(uint64(u))
}

// BigUint is the arbitrary-precision counterpart for fields documented as
// "may exceed 64 bits" in adjacent query surfaces (e.g. identity balances
// expressed in the archive's decimal-string convention). It decodes the
// same dual number/string encoding as Uint64 but never truncates.
type BigUint struct {
	v big.Int
}

// NewBigUint wraps an existing big.Int.
func NewBigUint(v *big.Int) BigUint {
	var b BigUint
	if v != nil {
		b.v.Set(v)
	}
	return b
}

// UnmarshalJSON accepts a JSON number or a decimal string.
func (b *BigUint) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("wireformat: empty bigint field")
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("wireformat: decoding string bigint: %w", err)
		}
	}
	if _, ok := b.v.SetString(s, 10); !ok {
		return fmt.Errorf("wireformat: invalid decimal integer %q", s)
	}
	return nil
}

// MarshalJSON always emits a decimal string for values that don't fit
// safely in a JSON number, mirroring MarshalJSON on Uint64.
func (b BigUint) MarshalJSON() ([]byte, error) {
	maxSafe := new(big.Int).SetUint64(uint64(1) << 53)
	if b.v.CmpAbs(maxSafe) < 0 {
		return []byte(b.v.String()), nil
	}
	return json.Marshal(b.v.String())
}

// Int returns the underlying *big.Int (a defensive copy).
func (b BigUint) Int() *big.Int {
	return new(big.Int).Set(&b.v)
}

// String implements fmt.Stringer.
func (b BigUint) String() string { return b.v.String() }
