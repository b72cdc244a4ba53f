package pricing

import (
	"testing"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incomeConfig() *domain.IncomeBracketConfig {
	return &domain.IncomeBracketConfig{
		ID:     "cfg",
		Active: true,
		Brackets: []domain.IncomeBracket{
			{ID: "high", Label: "QF > 1200", MinQF: f64p(1200.01), CalcKind: domain.CalcPercentage, Value: decimal.NewFromInt(100), Position: 3},
			{ID: "low", Label: "QF <= 600", MaxQF: f64p(600), CalcKind: domain.CalcFixed, Value: decimal.NewFromInt(70), Position: 1,
				Overrides: map[string]domain.IncomeOverride{
					"child": {CalcKind: domain.CalcFixed, Value: decimal.NewFromInt(40)},
				}},
			{ID: "mid", Label: "600 < QF <= 1200", MinQF: f64p(600.01), MaxQF: f64p(1200), CalcKind: domain.CalcPercentage, Value: decimal.NewFromInt(85), Position: 2},
		},
	}
}

func TestResolveIncome_FixedReplacesAmount(t *testing.T) {
	res := ResolveIncome(incomeConfig(), f64p(450), "adult", money.MustParse("100"))
	require.True(t, res.Applied)
	assert.Equal(t, "low", res.Bracket.ID)
	assert.Equal(t, "70.00", money.Format(res.Amount))
	assert.Equal(t, "100.00", money.Format(res.Before))
}

func TestResolveIncome_PercentageKeepsShare(t *testing.T) {
	res := ResolveIncome(incomeConfig(), f64p(900), "adult", money.MustParse("35.50"))
	require.True(t, res.Applied)
	assert.Equal(t, "mid", res.Bracket.ID)
	// 85% of 35.50 = 30.175, half away from zero
	assert.Equal(t, "30.18", money.Format(res.Amount))
}

func TestResolveIncome_AgeBracketOverride(t *testing.T) {
	res := ResolveIncome(incomeConfig(), f64p(450), "child", money.MustParse("100"))
	require.True(t, res.Applied)
	assert.Equal(t, "40.00", money.Format(res.Amount))

	tr := res.Trace()
	assert.Equal(t, "low", tr.BracketID)
	assert.Equal(t, domain.CalcFixed, tr.CalcKind)
}

func TestResolveIncome_LeavesAmountUnchanged(t *testing.T) {
	inactive := incomeConfig()
	inactive.Active = false
	gap := &domain.IncomeBracketConfig{Active: true, Brackets: []domain.IncomeBracket{
		{ID: "only", MinQF: f64p(2000), CalcKind: domain.CalcFixed, Value: decimal.NewFromInt(1)},
	}}

	for name, tc := range map[string]struct {
		cfg *domain.IncomeBracketConfig
		qf  *float64
	}{
		"no config":     {nil, f64p(100)},
		"inactive":      {inactive, f64p(100)},
		"unknown qf":    {incomeConfig(), nil},
		"outside range": {gap, f64p(100)},
	} {
		t.Run(name, func(t *testing.T) {
			res := ResolveIncome(tc.cfg, tc.qf, "adult", money.MustParse("42"))
			assert.False(t, res.Applied)
			assert.NotEmpty(t, res.Reason)
			assert.Equal(t, "42.00", money.Format(res.Amount))
		})
	}
}
