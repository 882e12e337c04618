// Package calc derives load figures from raw phase readings.
package calc

import (
	"math"

	"github.com/shopspring/decimal"

	"gardu-monitor-backend/internal/model"
)

// Derive computes average current, apparent power, loading percentage against
// the substation capacity and the phase unbalance.
//
//	average    = (R+S+T)/3
//	kva        = (R+S+T) * PN / 1000
//	percentage = kva / capacity * 100
//	unbalanced = (|R/avg-1| + |S/avg-1| + |T/avg-1|) / 3 * 100
func Derive(r model.Readings, capacityKVA float64) model.Derived {
	sum := r.R + r.S + r.T
	avg := sum / 3

	var kva, pct, unb float64
	kva = sum * r.PN / 1000
	if capacityKVA > 0 {
		pct = kva / capacityKVA * 100
	}
	if avg != 0 {
		unb = (math.Abs(r.R/avg-1) + math.Abs(r.S/avg-1) + math.Abs(r.T/avg-1)) / 3 * 100
	}

	return model.Derived{
		Average:    Round(avg),
		KVA:        Round(kva),
		Percentage: Round(pct),
		Unbalanced: Round(unb),
	}
}

// Round rounds to two decimal places, half away from zero.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
