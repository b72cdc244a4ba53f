package pricing

import (
	"log/slog"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/shopspring/decimal"
)

// QuoteInput is everything the fee pipeline needs, already loaded.
type QuoteInput struct {
	Facts        Facts
	Schedule     *domain.FeeSchedule
	AgeBrackets  []domain.AgeBracket
	StructureID  string
	IncomeConfig *domain.IncomeBracketConfig
	LegacyRules  []domain.LegacyReductionRule
	Tree         *domain.DecisionTree
	PaymentDate  time.Time
}

// Quote is a computed fee with its full audit trail.
type Quote struct {
	PaymentDate time.Time
	Age         *int
	AgeBracket  domain.AgeBracket
	Fallback    bool

	BaseAmount         decimal.Decimal
	Income             IncomeResolution
	Legacy             LegacyResult
	Tree               *TreeResult
	TreeID             string
	TreeVersion        int
	DisplayMode        domain.DisplayMode
	IntermediateAmount decimal.Decimal
	TreeReductions     decimal.Decimal
	TotalReductions    decimal.Decimal
	FinalAmount        decimal.Decimal
	LineItems          []domain.ReductionLineItem
	Trace              domain.EvaluationTrace
}

// Calculator runs the fee pipeline. It is stateless.
type Calculator struct {
	evaluator *Evaluator
	logger    *slog.Logger
}

// NewCalculator creates a Calculator.
func NewCalculator(evaluator *Evaluator, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if evaluator == nil {
		evaluator = NewEvaluator(logger, 0)
	}
	return &Calculator{evaluator: evaluator, logger: logger}
}

// Compute resolves age bracket, base amount, income bracket, legacy rules
// and decision tree, in that order. The tree sees the legacy output as its
// reference base; final = max(0, intermediate - tree reductions).
func (c *Calculator) Compute(in QuoteInput) (*Quote, error) {
	q := &Quote{PaymentDate: in.PaymentDate}
	q.Age = AgePtr(in.Facts.BirthDate, in.PaymentDate)

	bracket, fallback, err := ResolveAgeBracket(in.AgeBrackets, q.Age, in.StructureID)
	if err != nil {
		return nil, err
	}
	q.AgeBracket = *bracket
	q.Fallback = fallback
	q.BaseAmount = money.Round2(BaseAmount(in.Schedule, bracket))
	q.Trace.Tariff = domain.TariffTrace{
		Age:            q.Age,
		AgeBracketID:   bracket.ID,
		AgeBracketCode: bracket.Code,
		Fallback:       fallback,
		BaseAmount:     q.BaseAmount,
	}

	q.Income = ResolveIncome(in.IncomeConfig, in.Facts.IncomeQuotient, bracket.ID, q.BaseAmount)
	q.Trace.Income = q.Income.Trace()

	q.Legacy = ApplyLegacyRules(in.LegacyRules, in.Facts, in.PaymentDate, q.Income.Amount, c.logger)
	q.Trace.Legacy = q.Legacy.Trace
	q.IntermediateAmount = q.Legacy.Final
	q.LineItems = append(q.LineItems, q.Legacy.LineItems...)

	q.TreeReductions = money.Zero
	if in.Tree != nil {
		tr := c.evaluator.Evaluate(in.Tree.Nodes, in.Facts, TreeContext{
			ReferenceBaseAmount: q.IntermediateAmount,
			PaymentDate:         in.PaymentDate,
		})
		q.Tree = &tr
		q.TreeID = in.Tree.ID
		q.TreeVersion = in.Tree.Version
		q.DisplayMode = in.Tree.DisplayMode
		q.TreeReductions = tr.TotalReduction
		q.Trace.Tree = tr.Trace
		for _, it := range tr.LineItems {
			it.Position = len(q.LineItems)
			q.LineItems = append(q.LineItems, it)
		}
	} else {
		q.Trace.Notes = append(q.Trace.Notes, "no decision tree for schedule")
	}

	q.TotalReductions = money.Add(q.Legacy.TotalReduction, q.TreeReductions)
	q.FinalAmount = money.ClampNonNegative(money.Sub(q.IntermediateAmount, q.TreeReductions))
	return q, nil
}
