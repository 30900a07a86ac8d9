package yield

import (
	"fmt"
	"math/big"
	"time"

	"MicroPaper/internal/market"
)

const (
	// bpsScale converts basis points to a rate (1 bp = 0.01%).
	bpsScale = 10_000

	// dayCountBasis is the commercial-paper 360-day year convention.
	dayCountBasis = 360

	// apyBasis is the 365-day year used for annualizing APY.
	apyBasis = 365
)

// MaturityValue computes the simple-interest maturity value in minor units:
//
//	principal + floor(principal * rateBps/10000 * days/360)
//
// The intermediate product is carried in a big.Int so no precision is lost
// before the single floor division. Returns 0 for non-positive principal.
func MaturityValue(principalCents, rateBps, days int64) (int64, error) {
	if rateBps < 0 {
		return 0, fmt.Errorf("%w: interest rate cannot be negative", market.ErrInvalidParameter)
	}
	if days < 0 {
		return 0, fmt.Errorf("%w: days to maturity cannot be negative", market.ErrInvalidParameter)
	}
	if principalCents <= 0 {
		return 0, nil
	}

	// interest = principal * rateBps * days / (10000 * 360), rounded down
	numerator := new(big.Int).Mul(big.NewInt(principalCents), big.NewInt(rateBps))
	numerator.Mul(numerator, big.NewInt(days))
	interest := numerator.Div(numerator, big.NewInt(bpsScale*dayCountBasis))

	return principalCents + interest.Int64(), nil
}

// APY annualizes the return over days using a 365-day year:
//
//	((maturity/principal) - 1) * (365/days) * 100
//
// rounded half-even to two decimals. Non-positive principal or days is a
// degenerate case, not an error: the result is 0.0.
func APY(principalCents, maturityValueCents, days int64) float64 {
	if principalCents <= 0 || days <= 0 {
		return 0.0
	}

	ratio := new(big.Rat).SetFrac64(maturityValueCents, principalCents)
	ratio.Sub(ratio, big.NewRat(1, 1))
	ratio.Mul(ratio, big.NewRat(apyBasis, days))
	ratio.Mul(ratio, big.NewRat(100, 1))

	return round2(ratio)
}

// FromRate derives maturity value and APY from the note's rate and dates.
// days is the whole-day difference; if the note matures on or before the
// issue date the principal is returned unchanged with a zero APY.
func FromRate(principalCents, rateBps int64, issuedAt, maturityAt time.Time) (int64, float64, error) {
	days := int64(maturityAt.Sub(issuedAt).Hours() / 24)
	if days <= 0 {
		return principalCents, 0.0, nil
	}

	maturityValue, err := MaturityValue(principalCents, rateBps, days)
	if err != nil {
		return 0, 0.0, err
	}

	return maturityValue, APY(principalCents, maturityValue, days), nil
}

// round2 rounds an exact rational to two decimal places, half to even,
// and returns it as a float64 percentage.
func round2(r *big.Rat) float64 {
	// scaled = r * 100, rounded half-even to an integer number of
	// hundredths of a percent
	scaled := new(big.Rat).Mul(r, big.NewRat(100, 1))

	num := new(big.Int).Set(scaled.Num())
	denom := scaled.Denom()

	quo, rem := new(big.Int).QuoRem(num, denom, new(big.Int))

	// Compare 2*|rem| against denom to decide the rounding direction.
	negative := rem.Sign() < 0
	twiceRem := new(big.Int).Abs(rem)
	twiceRem.Lsh(twiceRem, 1)

	cmp := twiceRem.Cmp(denom)
	roundAway := cmp > 0 || (cmp == 0 && quo.Bit(0) == 1)
	if roundAway {
		if negative {
			quo.Sub(quo, big.NewInt(1))
		} else {
			quo.Add(quo, big.NewInt(1))
		}
	}

	return float64(quo.Int64()) / 100
}
