// Package capacity decides whether a destination has room for a planned copy
// before any data moves.
package capacity

import (
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strings"

	"github.com/dustin/go-humanize"
)

// Ratio is an exact non-negative rational Num/Den. The zero value is 0.
type Ratio struct {
	Num uint64
	Den uint64
}

// Percent returns p/100.
func Percent(p uint64) Ratio {
	return Ratio{Num: p, Den: 100}
}

// IsZero reports whether r is 0.
func (r Ratio) IsZero() bool {
	return r.Num == 0
}

// Validate rejects a non-zero numerator over a zero denominator.
func (r Ratio) Validate() error {
	if r.Den == 0 && r.Num != 0 {
		return fmt.Errorf("ratio %d/0 has a zero denominator", r.Num)
	}
	return nil
}

func (r Ratio) String() string {
	if r.IsZero() {
		return "0%"
	}
	if r.Den == 0 {
		return fmt.Sprintf("%d/0", r.Num)
	}
	pct := new(big.Rat).SetFrac(new(big.Int).SetUint64(r.Num), new(big.Int).SetUint64(r.Den))
	pct.Mul(pct, big.NewRat(100, 1))
	if pct.IsInt() {
		return pct.Num().String() + "%"
	}
	return strings.TrimRight(strings.TrimRight(pct.FloatString(4), "0"), ".") + "%"
}

// ParseRatio accepts "10%", "12.5%", "0.1" or "1/10".
func ParseRatio(s string) (Ratio, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ratio{}, nil
	}

	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Ratio{}, fmt.Errorf("invalid ratio %q", s)
	}
	if percent {
		r.Quo(r, big.NewRat(100, 1))
	}
	if r.Sign() < 0 {
		return Ratio{}, fmt.Errorf("ratio must not be negative: %q", s)
	}
	if !r.Num().IsUint64() || !r.Denom().IsUint64() {
		return Ratio{}, fmt.Errorf("ratio %q out of range", s)
	}
	return Ratio{Num: r.Num().Uint64(), Den: r.Denom().Uint64()}, nil
}

// Plan is the outcome of a capacity check.
type Plan struct {
	SourceBytes    uint64 `json:"source_bytes"`
	OverheadBytes  uint64 `json:"overhead_bytes"`
	MarginBytes    uint64 `json:"margin_bytes"`
	RequiredBytes  uint64 `json:"required_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
	Margin         string `json:"margin"`
	Sufficient     bool   `json:"sufficient"`
}

// Compute sizes a copy of sourceBytes onto a destination with availableBytes
// free. required = (source + overhead) plus margin of that sum, rounded up.
// Arithmetic saturates at math.MaxUint64.
func Compute(sourceBytes, availableBytes, overheadBytes uint64, margin Ratio) Plan {
	base := addSat(sourceBytes, overheadBytes)
	extra := mulRatioCeil(base, margin)
	required := addSat(base, extra)

	return Plan{
		SourceBytes:    sourceBytes,
		OverheadBytes:  overheadBytes,
		MarginBytes:    extra,
		RequiredBytes:  required,
		AvailableBytes: availableBytes,
		Margin:         margin.String(),
		Sufficient:     availableBytes >= required,
	}
}

// Err returns an *InsufficientError when the plan is not sufficient.
func (p Plan) Err() error {
	if p.Sufficient {
		return nil
	}
	return &InsufficientError{Plan: p}
}

func (p Plan) String() string {
	return fmt.Sprintf("need %s (%s source + %s overhead + %s margin at %s), %s available",
		humanize.IBytes(p.RequiredBytes),
		humanize.IBytes(p.SourceBytes),
		humanize.IBytes(p.OverheadBytes),
		humanize.IBytes(p.MarginBytes),
		p.Margin,
		humanize.IBytes(p.AvailableBytes),
	)
}

// InsufficientError reports that the destination is too small.
type InsufficientError struct {
	Plan Plan
}

func (e *InsufficientError) Error() string {
	return "insufficient space: " + e.Plan.String()
}

// Shortfall is how many more bytes the destination needs.
func (e *InsufficientError) Shortfall() uint64 {
	return e.Plan.RequiredBytes - e.Plan.AvailableBytes
}

// ContainerSize is the provisioned size of a container holding sourceBytes:
// source + overhead rounded up to a multiple of allocationUnit. It does not
// include the availability margin.
func ContainerSize(sourceBytes, overheadBytes, allocationUnit uint64) uint64 {
	size := addSat(sourceBytes, overheadBytes)
	if allocationUnit <= 1 {
		return size
	}
	rem := size % allocationUnit
	if rem == 0 {
		return size
	}
	return addSat(size, allocationUnit-rem)
}

func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// mulRatioCeil returns ceil(x * r.Num / r.Den).
func mulRatioCeil(x uint64, r Ratio) uint64 {
	if x == 0 || r.Num == 0 {
		return 0
	}
	if r.Den == 0 {
		return math.MaxUint64
	}
	hi, lo := bits.Mul64(x, r.Num)
	if hi >= r.Den {
		return math.MaxUint64
	}
	q, rem := bits.Div64(hi, lo, r.Den)
	if rem != 0 {
		q = addSat(q, 1)
	}
	return q
}
