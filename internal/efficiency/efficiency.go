// Package efficiency grades a refrigerator's measured consumption against the current and
// 2027 allowance standards. Every step rounds before the next one uses its result.
package efficiency

import (
	"strconv"

	"codeberg.org/mutker/fridgebench/internal/errors"
)

const (
	// ClassFridgeOnly is the enclosure class of a unit without a freezer compartment.
	ClassFridgeOnly = 5

	referenceTemp     = 30.0
	volumeBoundary    = 400.0
	daysPerMonth      = 30
	starredTierFactor = 0.95
)

// PercentBasis selects the threshold a grade percentage is computed against.
type PercentBasis int

const (
	// PercentMatchedTier divides by the threshold of the matched tier (top tier for 1 and 1*,
	// the lowest tier for grade 5).
	PercentMatchedTier PercentBasis = iota
	// PercentTopTier always divides by the top-tier threshold.
	PercentTopTier
)

type Input struct {
	FreezerVolume float64 `json:"freezer_volume"`
	FridgeVolume  float64 `json:"fridge_volume"`
	DailyKWh      float64 `json:"daily_kwh"`
	FreezerTemp   float64 `json:"freezer_temp"`
	FridgeTemp    float64 `json:"fridge_temp"`
	// Fan is true for forced-air units.
	Fan   bool         `json:"fan"`
	Basis PercentBasis `json:"-"`
}

func (in Input) Validate() error {
	errFactory := errors.New()
	if in.FreezerVolume < 0 || in.FridgeVolume < 0 {
		return errFactory.New(ErrInvalidVolume).WithData(in)
	}
	if in.FridgeTemp >= referenceTemp {
		return errFactory.New(ErrInvalidTemperature).WithData(in.FridgeTemp)
	}
	return nil
}

// Rating is a grade under one standard.
type Rating struct {
	Thresholds [4]float64 `json:"thresholds"`
	Grade      string     `json:"grade"`
	Percentage float64    `json:"percentage"`
}

type Result struct {
	Input
	K                float64 `json:"k"`
	EquivalentVolume float64 `json:"equivalent_volume"`
	Class            int     `json:"class"`
	Allowance        float64 `json:"allowance"`
	FutureAllowance  float64 `json:"future_allowance"`
	Benchmark        float64 `json:"benchmark"`
	FutureBenchmark  float64 `json:"future_benchmark"`
	MonthlyKWh       float64 `json:"monthly_kwh"`
	EF               float64 `json:"ef"`
	Current          Rating  `json:"current"`
	Future           Rating  `json:"future"`
}

// allowance coefficients (a, b) per class: V / (a*V + b).
var coefficients = map[int][2]float64{
	1: {0.037, 24.3},
	2: {0.031, 21},
	3: {0.033, 19.7},
	4: {0.029, 17},
	5: {0.033, 15.8},
}

var (
	currentMultipliers = map[bool][4]float64{
		true:  {1.72, 1.54, 1.36, 1.18},
		false: {1.6, 1.45, 1.3, 1.15},
	}
	futureMultipliers = map[bool][4]float64{
		true:  {1.294, 1.221, 1.147, 1.074},
		false: {1.308, 1.231, 1.154, 1.077},
	}
)

// Calculate runs the grading steps. Callers should Validate the input first;
// divisions by a zero intermediate yield 0. Tier thresholds are strictly ordered for an
// equivalent volume of 30 L or more; below that, rounding can merge adjacent tiers.
func Calculate(in Input) Result {
	r := Result{Input: in}

	r.K = Round((referenceTemp-in.FreezerTemp)/(referenceTemp-in.FridgeTemp), 2)
	r.EquivalentVolume = Round(in.FridgeVolume+r.K*in.FreezerVolume, 1)
	r.Class = Class(in.FreezerVolume, r.EquivalentVolume, in.Fan)

	c := coefficients[r.Class]
	denominator := c[0]*r.EquivalentVolume + c[1]
	futureFactor := 1.3
	if r.Class == ClassFridgeOnly {
		futureFactor = 1.36
	}
	r.Allowance = Round(div(r.EquivalentVolume, denominator), 1)
	r.FutureAllowance = Round(div(futureFactor*r.EquivalentVolume, denominator), 1)

	r.Benchmark = Round(div(r.EquivalentVolume, r.Allowance), 1)
	r.FutureBenchmark = Round(div(r.EquivalentVolume, r.FutureAllowance), 1)

	r.MonthlyKWh = Round(in.DailyKWh*daysPerMonth, 1)
	r.EF = Round(div(r.EquivalentVolume, r.MonthlyKWh), 1)

	fridgeOnly := r.Class == ClassFridgeOnly
	r.Current = grade(r.EF, thresholds(r.Allowance, currentMultipliers[fridgeOnly]), in.Basis)
	r.Future = grade(r.EF, thresholds(r.FutureAllowance, futureMultipliers[fridgeOnly]), in.Basis)

	return r
}

// Class returns the enclosure class 1..5.
func Class(freezerVolume, equivalentVolume float64, fan bool) int {
	switch {
	case freezerVolume == 0:
		return ClassFridgeOnly
	case equivalentVolume < volumeBoundary && fan:
		return 1
	case fan:
		return 2
	case equivalentVolume < volumeBoundary:
		return 3
	default:
		return 4
	}
}

func thresholds(allowance float64, multipliers [4]float64) [4]float64 {
	var out [4]float64
	for i, m := range multipliers {
		out[i] = Round(allowance*m, 1)
	}
	return out
}

func grade(ef float64, t [4]float64, basis PercentBasis) Rating {
	var (
		g         string
		reference float64
	)

	switch {
	case ef >= t[0]:
		g, reference = "1", t[0]
	case ef >= t[0]*starredTierFactor:
		g, reference = "1*", t[0]
	case ef >= t[1]:
		g, reference = "2", t[1]
	case ef >= t[2]:
		g, reference = "3", t[2]
	case ef >= t[3]:
		g, reference = "4", t[3]
	default:
		g, reference = "5", t[3]
	}

	if basis == PercentTopTier {
		reference = t[0]
	}

	return Rating{
		Thresholds: t,
		Grade:      g,
		Percentage: Round(div(ef, reference)*100, 1),
	}
}

func div(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Round rounds x to places decimals the way a decimal printout does, so 2.675 stays 2.67
// while 0.125 becomes 0.12.
func Round(x float64, places int) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return v
}
