package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func sampleTreeNodes() []domain.DecisionNode {
	return []domain.DecisionNode{{
		ID: "n-age", ConditionKind: domain.KindAge, Label: "Age", Order: 0,
		Branches: []domain.DecisionBranch{
			{
				ID: "b-young", Code: "JEUNE", Label: "Moins de 18 ans",
				Condition: domain.AgeCondition{Comparison: domain.Comparison{Operator: domain.OpLT, Value: intPtr(18)}},
				Reduction: &domain.Reduction{CalcKind: domain.CalcPercentage, Value: decimal.NewFromInt(15)},
			},
			{ID: "b-default", Code: "AUTRE", Label: "Autres", Condition: domain.AnyCondition{}},
		},
	}}
}

func seedTreeSchedule(t *testing.T, ctx context.Context, schedules ScheduleRepo) *domain.FeeSchedule {
	t.Helper()
	s := testutil.NewTestSchedule("2025", "100")
	require.NoError(t, schedules.Upsert(ctx, s))
	return s
}

func TestTreeRepo_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteTreeRepo(db)
	ctx := context.Background()
	s := seedTreeSchedule(t, ctx, NewSQLiteScheduleRepo(db))

	tree := testutil.NewTestTree(s.ID, sampleTreeNodes()...)
	require.NoError(t, repo.Create(ctx, tree))

	got, err := repo.GetByID(ctx, tree.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ScheduleID)
	assert.Equal(t, 1, got.Version)
	assert.False(t, got.Locked)
	assert.True(t, got.Current())
	assert.Equal(t, domain.DisplayCumulative, got.DisplayMode)
	require.Len(t, got.Nodes, 1)
	require.Len(t, got.Nodes[0].Branches, 2)
	assert.Equal(t, sampleTreeNodes()[0].Branches[0].Condition, got.Nodes[0].Branches[0].Condition)
	assert.True(t, got.Nodes[0].Branches[0].Reduction.Value.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, domain.AnyCondition{}, got.Nodes[0].Branches[1].Condition)

	current, err := repo.GetCurrent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.ID, current.ID)
}

func TestTreeRepo_SecondCurrentTreeIsRejected(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteTreeRepo(db)
	ctx := context.Background()
	s := seedTreeSchedule(t, ctx, NewSQLiteScheduleRepo(db))

	require.NoError(t, repo.Create(ctx, testutil.NewTestTree(s.ID)))

	second := testutil.NewTestTree(s.ID)
	second.Version = 2
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrTreeExists)
}

func TestTreeRepo_GetCurrent_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteTreeRepo(db)

	_, err := repo.GetCurrent(context.Background(), "none")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(context.Background(), "none")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTreeRepo_LockIsConditional(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteTreeRepo(db)
	ctx := context.Background()
	s := seedTreeSchedule(t, ctx, NewSQLiteScheduleRepo(db))
	tree := testutil.NewTestTree(s.ID, sampleTreeNodes()...)
	require.NoError(t, repo.Create(ctx, tree))

	at := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	changed, err := repo.Lock(ctx, tree.ID, at)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Lock(ctx, tree.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, tree.ID)
	require.NoError(t, err)
	assert.True(t, got.Locked)
	require.NotNil(t, got.LockedAt)
	assert.True(t, at.Equal(*got.LockedAt), "first lock time is kept")

	got.Nodes = nil
	got.UpdatedAt = at
	assert.ErrorIs(t, repo.UpdateNodes(ctx, got), ErrConflict)
	assert.ErrorIs(t, repo.BumpVersion(ctx, tree.ID, 2, at), ErrConflict)
}

func TestTreeRepo_UpdateNodesAndBumpVersion(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteTreeRepo(db)
	ctx := context.Background()
	s := seedTreeSchedule(t, ctx, NewSQLiteScheduleRepo(db))
	tree := testutil.NewTestTree(s.ID)
	require.NoError(t, repo.Create(ctx, tree))

	tree.Nodes = sampleTreeNodes()
	tree.DisplayMode = domain.DisplayDetailed
	tree.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateNodes(ctx, tree))
	require.NoError(t, repo.BumpVersion(ctx, tree.ID, 2, time.Now().UTC()))

	got, err := repo.GetByID(ctx, tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, domain.DisplayDetailed, got.DisplayMode)
	assert.Len(t, got.Nodes, 1)

	latest, err := repo.MaxVersion(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest)
}

func TestTreeRepo_SupersedeAndListVersions(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteTreeRepo(db)
	ctx := context.Background()
	s := seedTreeSchedule(t, ctx, NewSQLiteScheduleRepo(db))

	v1 := testutil.NewTestTree(s.ID)
	require.NoError(t, repo.Create(ctx, v1))
	now := time.Now().UTC()
	require.NoError(t, repo.Supersede(ctx, v1.ID, now))
	assert.ErrorIs(t, repo.Supersede(ctx, v1.ID, now), ErrConflict, "already superseded")

	v2 := testutil.NewTestTree(s.ID)
	v2.Version = 2
	require.NoError(t, repo.Create(ctx, v2))

	versions, err := repo.ListVersions(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.False(t, versions[0].Current())
	assert.True(t, versions[1].Current())

	current, err := repo.GetCurrent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, current.ID)
}

func TestTreeRepo_LockEvents(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteTreeRepo(db)
	ctx := context.Background()
	s := seedTreeSchedule(t, ctx, NewSQLiteScheduleRepo(db))
	tree := testutil.NewTestTree(s.ID)
	require.NoError(t, repo.Create(ctx, tree))

	n, err := repo.CountLockEvents(ctx, tree.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.RecordLockEvent(ctx, tree.ID, 1, nil, time.Now()))
	n, err = repo.CountLockEvents(ctx, tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
