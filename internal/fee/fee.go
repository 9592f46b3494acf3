// Package fee computes the platform's cut of a settlement. The split is
// exact: the platform takes floor(gross * bps / 10000) and the seller gets
// the remainder, so no value is ever created or destroyed by rounding.
package fee

import (
	"fmt"
	"math/big"
)

// Denominator is the basis-point scale.
const Denominator = 10_000

// Schedule is an immutable fee policy fixed at construction.
type Schedule struct {
	bps uint32
}

// NewSchedule creates a Schedule charging bps basis points per settlement.
func NewSchedule(bps uint32) (Schedule, error) {
	if bps > Denominator {
		return Schedule{}, fmt.Errorf("fee: bps %d exceeds %d", bps, Denominator)
	}
	return Schedule{bps: bps}, nil
}

// Bps returns the configured fee in basis points.
func (s Schedule) Bps() uint32 {
	return s.bps
}

// Split divides gross into the seller's and the platform's share. The two
// returned amounts always sum to gross exactly; the rounding remainder goes
// to the seller.
func (s Schedule) Split(gross *big.Int) (seller, platform *big.Int) {
	platform = new(big.Int).Mul(gross, big.NewInt(int64(s.bps)))
	platform.Div(platform, big.NewInt(Denominator))
	seller = new(big.Int).Sub(gross, platform)
	return seller, platform
}
