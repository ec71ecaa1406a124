package fixed

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by an Exp mantissa.
const Scale = 18

var (
	ErrOverflow       = errors.New("fixed: arithmetic overflow")
	ErrUnderflow      = errors.New("fixed: arithmetic underflow")
	ErrDivisionByZero = errors.New("fixed: division by zero")
	ErrInvalidDecimal = errors.New("fixed: invalid decimal")
)

var expScale = uint256.NewInt(1_000_000_000_000_000_000)

// Exp is an unsigned 18-decimal fixed-point number. The represented value is
// mantissa / 1e18. The zero value is 0.
type Exp struct {
	mantissa uint256.Int
}

// NewExp wraps a raw 1e18-scaled mantissa. A nil mantissa yields zero.
func NewExp(mantissa *uint256.Int) Exp {
	var e Exp
	if mantissa != nil {
		e.mantissa.Set(mantissa)
	}
	return e
}

// FromMantissa wraps a raw mantissa that fits in 64 bits.
func FromMantissa(mantissa uint64) Exp {
	var e Exp
	e.mantissa.SetUint64(mantissa)
	return e
}

// One returns the fixed-point value 1.0.
func One() Exp {
	return NewExp(expScale)
}

// FromBig converts a 1e18-scaled big integer mantissa into an Exp. Nil is
// treated as zero; negative or oversized values are rejected.
func FromBig(mantissa *big.Int) (Exp, error) {
	if mantissa == nil {
		return Exp{}, nil
	}
	if mantissa.Sign() < 0 {
		return Exp{}, ErrUnderflow
	}
	value, overflow := uint256.FromBig(mantissa)
	if overflow {
		return Exp{}, ErrOverflow
	}
	return NewExp(value), nil
}

// Parse reads a human decimal such as "0.75" or "1.08" into an Exp. More than
// 18 fractional digits is rejected rather than rounded.
func Parse(value string) (Exp, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Exp{}, fmt.Errorf("%w: empty value", ErrInvalidDecimal)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Exp{}, fmt.Errorf("%w: %v", ErrInvalidDecimal, err)
	}
	if d.Sign() < 0 {
		return Exp{}, fmt.Errorf("%w: negative value %s", ErrInvalidDecimal, trimmed)
	}
	shifted := d.Shift(Scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Exp{}, fmt.Errorf("%w: more than %d decimal places in %s", ErrInvalidDecimal, Scale, trimmed)
	}
	return FromBig(shifted.BigInt())
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(value string) Exp {
	e, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return e
}

// Mantissa returns a copy of the raw 1e18-scaled mantissa.
func (e Exp) Mantissa() *uint256.Int {
	return e.mantissa.Clone()
}

// BigInt returns the mantissa as a big integer for persistence.
func (e Exp) BigInt() *big.Int {
	return e.mantissa.ToBig()
}

func (e Exp) IsZero() bool {
	return e.mantissa.IsZero()
}

// Cmp compares two Exp values and returns -1, 0 or +1.
func (e Exp) Cmp(other Exp) int {
	return e.mantissa.Cmp(&other.mantissa)
}

// String renders the value as a plain decimal, e.g. "0.75".
func (e Exp) String() string {
	return decimal.NewFromBigInt(e.mantissa.ToBig(), -Scale).String()
}

func (e Exp) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Exp) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Mul returns a*b truncated toward zero.
func Mul(a, b Exp) (Exp, error) {
	product, overflow := new(uint256.Int).MulOverflow(&a.mantissa, &b.mantissa)
	if overflow {
		return Exp{}, ErrOverflow
	}
	product.Div(product, expScale)
	return NewExp(product), nil
}

// Div returns a/b truncated toward zero.
func Div(a, b Exp) (Exp, error) {
	if b.mantissa.IsZero() {
		return Exp{}, ErrDivisionByZero
	}
	scaled, overflow := new(uint256.Int).MulOverflow(&a.mantissa, expScale)
	if overflow {
		return Exp{}, ErrOverflow
	}
	scaled.Div(scaled, &b.mantissa)
	return NewExp(scaled), nil
}

// MulScalarTruncate returns the integer part of a*scalar.
func MulScalarTruncate(a Exp, scalar *uint256.Int) (*uint256.Int, error) {
	if scalar == nil {
		return new(uint256.Int), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(&a.mantissa, scalar)
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, expScale), nil
}

// MulScalarTruncateAdd returns trunc(a*scalar) + addend.
func MulScalarTruncateAdd(a Exp, scalar, addend *uint256.Int) (*uint256.Int, error) {
	product, err := MulScalarTruncate(a, scalar)
	if err != nil {
		return nil, err
	}
	return Add(product, addend)
}

// Add returns a+b as a new integer.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(orZero(a), orZero(b))
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b as a new integer and fails when b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(orZero(a), orZero(b))
	if underflow {
		return nil, ErrUnderflow
	}
	return diff, nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
