package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// pricingFixture is a configured association: one schedule at 100, a
// "QF <= 600 pays 70" income bracket, a 10% RSA legacy rule and a tree
// granting 15% under 18 plus 5 for five years of seniority.
type pricingFixture struct {
	db       *sql.DB
	repos    FeeRepos
	member   *domain.Member
	schedule *domain.FeeSchedule
	tree     *domain.DecisionTree
	cache    *IncomeConfigCache
}

func ageNode() domain.DecisionNode {
	return domain.DecisionNode{
		ID: uuid.New().String(), ConditionKind: domain.KindAge, Label: "Âge", Order: 0,
		Branches: []domain.DecisionBranch{
			{
				ID: uuid.New().String(), Code: "JEUNE", Label: "Moins de 18 ans",
				Condition: domain.AgeCondition{Comparison: domain.Comparison{Operator: domain.OpLT, Value: intPtr(18)}},
				Reduction: &domain.Reduction{CalcKind: domain.CalcPercentage, Value: decimal.NewFromInt(15)},
			},
			{ID: uuid.New().String(), Code: "AUTRE", Label: "Autres", Condition: domain.AnyCondition{}},
		},
	}
}

func seniorityNode() domain.DecisionNode {
	return domain.DecisionNode{
		ID: uuid.New().String(), ConditionKind: domain.KindFidelite, Label: "Fidélité", Order: 1,
		Branches: []domain.DecisionBranch{{
			ID: uuid.New().String(), Code: "FIDELE", Label: "5 ans et plus",
			Condition: domain.FideliteCondition{Comparison: domain.Comparison{Operator: domain.OpGTE, Value: intPtr(5)}},
			Reduction: &domain.Reduction{CalcKind: domain.CalcFixed, Value: decimal.NewFromInt(5)},
		}},
	}
}

func setupPricing(t *testing.T, database *sql.DB) pricingFixture {
	t.Helper()
	ctx := context.Background()
	r := NewSQLiteFeeRepos(database)

	require.NoError(t, r.AgeBrackets.Upsert(ctx, testutil.NewTestAgeBracket(domain.StandardBracketCode, nil, nil, 100)))

	s := testutil.NewTestSchedule("2025-2026", "100")
	require.NoError(t, r.Schedules.Upsert(ctx, s))

	max600 := 600.0
	require.NoError(t, r.IncomeConfigs.Upsert(ctx, &domain.IncomeBracketConfig{
		ID: uuid.New().String(), Label: "QF 2025", Active: true,
		Brackets: []domain.IncomeBracket{{
			ID: "low", Label: "QF <= 600", MaxQF: &max600,
			CalcKind: domain.CalcFixed, Value: decimal.NewFromInt(70), Position: 1,
		}},
	}))
	require.NoError(t, r.LegacyRules.Upsert(ctx,
		testutil.NewTestRule("RSA", 1, domain.StatutSocialCondition{Value: "RSA"}, domain.CalcPercentage, "10")))

	m := testutil.NewTestMember("Lina", "Moreau",
		testutil.WithBirthDate(testutil.Date(2014, 5, 2)),
		testutil.WithIncomeQuotient(450),
		testutil.WithSocialStatus("RSA"),
	)
	require.NoError(t, r.Members.Create(ctx, m))
	// first membership, six years before the reference date
	require.NoError(t, r.Payments.Create(ctx, testutil.NewTestPayment(m.ID, s.ID, testutil.Date(2019, 9, 1), "30")))

	tree := testutil.NewTestTree(s.ID, ageNode(), seniorityNode())
	require.NoError(t, r.Trees.Create(ctx, tree))

	return pricingFixture{db: database, repos: r, member: m, schedule: s, tree: tree, cache: NewIncomeConfigCache()}
}

func (fx pricingFixture) feeService(uow db.UnitOfWork, observers ...UseCaseObserver) FeeService {
	return NewFeeService(fx.repos, uow, fx.cache, nil, observers...)
}

func (fx pricingFixture) treeService() TreeService {
	return NewTreeService(fx.repos.Trees, fx.repos.Schedules, testutil.NewTestUoW(fx.db), 0)
}
