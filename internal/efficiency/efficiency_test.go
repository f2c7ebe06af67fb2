package efficiency

import (
	"testing"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nominal(freezer, fridge, daily float64, fan bool) Input {
	return Input{
		FreezerVolume: freezer,
		FridgeVolume:  fridge,
		DailyKWh:      daily,
		FreezerTemp:   -18,
		FridgeTemp:    3,
		Fan:           fan,
	}
}

func TestCalculateForcedAirLarge(t *testing.T) {
	r := Calculate(nominal(150, 350, 1.0, true))

	assert.Equal(t, 1.78, r.K)
	assert.Equal(t, 617.0, r.EquivalentVolume)
	assert.Equal(t, 2, r.Class)
	assert.Equal(t, 15.4, r.Allowance)
	assert.Equal(t, 20.0, r.FutureAllowance)
	assert.Equal(t, 40.1, r.Benchmark)
	assert.Equal(t, 30.9, r.FutureBenchmark)
	assert.Equal(t, 30.0, r.MonthlyKWh)
	assert.Equal(t, 20.6, r.EF)

	assert.Equal(t, [4]float64{24.6, 22.3, 20.0, 17.7}, r.Current.Thresholds)
	assert.Equal(t, "3", r.Current.Grade)
	assert.Equal(t, 103.0, r.Current.Percentage)

	assert.Equal(t, [4]float64{26.2, 24.6, 23.1, 21.5}, r.Future.Thresholds)
	assert.Equal(t, "5", r.Future.Grade)
	assert.Equal(t, 95.8, r.Future.Percentage)
}

func TestCalculateTopTierBasis(t *testing.T) {
	in := nominal(150, 350, 1.0, true)
	in.Basis = PercentTopTier
	r := Calculate(in)

	assert.Equal(t, "3", r.Current.Grade)
	// 20.6 / 24.6
	assert.Equal(t, 83.7, r.Current.Percentage)
	// 20.6 / 26.2
	assert.Equal(t, 78.6, r.Future.Percentage)
}

func TestZeroConsumptionIsGuarded(t *testing.T) {
	r := Calculate(nominal(150, 350, 0, true))
	assert.Equal(t, 0.0, r.MonthlyKWh)
	assert.Equal(t, 0.0, r.EF)
	assert.Equal(t, "5", r.Current.Grade)
	assert.Equal(t, 0.0, r.Current.Percentage)
}

func TestClass(t *testing.T) {
	tests := []struct {
		name    string
		freezer float64
		volume  float64
		fan     bool
		want    int
	}{
		{"fridge only", 0, 300, true, 5},
		{"small forced air", 100, 399.9, true, 1},
		{"large forced air", 100, 400, true, 2},
		{"small natural", 100, 250, false, 3},
		{"large natural", 100, 450, false, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Class(tt.freezer, tt.volume, tt.fan))
		})
	}
}

func TestFridgeOnlyUsesOwnTables(t *testing.T) {
	r := Calculate(nominal(0, 300, 0.5, false))

	assert.Equal(t, ClassFridgeOnly, r.Class)
	assert.Equal(t, 300.0, r.EquivalentVolume)
	// 300 / (0.033*300 + 15.8) = 11.67
	assert.Equal(t, 11.7, r.Allowance)
	// 1.36 * 300 / 25.7 = 15.87
	assert.Equal(t, 15.9, r.FutureAllowance)
	assert.Equal(t, [4]float64{20.1, 18.0, 15.9, 13.8}, r.Current.Thresholds)
	assert.Equal(t, 15.0, r.MonthlyKWh)
	assert.Equal(t, 20.0, r.EF)
	// 20.0 >= 0.95*20.1
	assert.Equal(t, "1*", r.Current.Grade)
	assert.Equal(t, 99.5, r.Current.Percentage)
}

func TestGradeTiers(t *testing.T) {
	th := [4]float64{20, 18, 16, 14}
	tests := []struct {
		ef      float64
		grade   string
		percent float64
	}{
		{21, "1", 105.0},
		{19, "1*", 95.0},
		{18.5, "2", 102.8},
		{16, "3", 100.0},
		{15, "4", 107.1},
		{10, "5", 71.4},
	}

	for _, tt := range tests {
		r := grade(tt.ef, th, PercentMatchedTier)
		assert.Equal(t, tt.grade, r.Grade, "ef %v", tt.ef)
		assert.Equal(t, tt.percent, r.Percentage, "ef %v", tt.ef)
	}
}

func TestGradeSweep(t *testing.T) {
	rank := map[string]int{"1": 0, "1*": 1, "2": 2, "3": 3, "4": 4, "5": 5}
	seen := map[int]bool{}

	for _, fan := range []bool{true, false} {
		for _, freezer := range []float64{0, 50, 150} {
			for fridge := 50.0; fridge <= 900; fridge += 25 {
				last := map[string]int{"current": rank["5"], "future": rank["5"]}

				// Falling consumption raises EF; the grade may only improve.
				for daily := 10.0; daily > 0.04; daily -= 0.05 {
					r := Calculate(nominal(freezer, fridge, daily, fan))
					seen[r.Class] = true

					for name, rating := range map[string]Rating{"current": r.Current, "future": r.Future} {
						th := rating.Thresholds
						for i := 0; i < len(th)-1; i++ {
							require.Greater(t, th[i], th[i+1],
								"%s thresholds %v, class %d, V %.1f", name, th, r.Class, r.EquivalentVolume)
						}

						got, ok := rank[rating.Grade]
						require.True(t, ok, rating.Grade)
						require.LessOrEqual(t, got, last[name],
							"%s grade worsened at EF %.1f, class %d, V %.1f", name, r.EF, r.Class, r.EquivalentVolume)
						last[name] = got
					}
				}
			}
		}
	}

	for class := 1; class <= ClassFridgeOnly; class++ {
		assert.True(t, seen[class], "class %d not covered", class)
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 2.67, Round(2.675, 2))
	assert.Equal(t, 0.12, Round(0.125, 2))
	assert.Equal(t, 1.78, Round(48.0/27.0, 2))
	assert.Equal(t, -1.4, Round(-1.45, 1))
}

func TestValidate(t *testing.T) {
	require.NoError(t, nominal(0, 300, 1, false).Validate())

	err := nominal(-1, 300, 1, false).Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, errors.Kind(err))

	in := nominal(100, 300, 1, false)
	in.FridgeTemp = 30
	assert.Error(t, in.Validate())
}
