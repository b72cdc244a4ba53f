package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/repository"
	"github.com/alexanderramin/ludo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTreeService(t *testing.T) (context.Context, TreeService, FeeRepos, *domain.FeeSchedule) {
	t.Helper()
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	repos := NewSQLiteFeeRepos(database)
	s := testutil.NewTestSchedule("2025-2026", "100")
	require.NoError(t, repos.Schedules.Upsert(ctx, s))
	svc := NewTreeService(repos.Trees, repos.Schedules, testutil.NewTestUoW(database), 4)
	return ctx, svc, repos, s
}

func TestTreeService_CreateAndUpdate(t *testing.T) {
	ctx, svc, _, s := setupTreeService(t)

	tree, err := svc.Create(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Version)
	assert.Empty(t, tree.Nodes)
	assert.Equal(t, domain.DisplayCumulative, tree.DisplayMode)

	_, err = svc.Create(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrTreeExists)

	updated, err := svc.Update(ctx, tree.ID, []domain.DecisionNode{ageNode()}, domain.DisplayDetailed)
	require.NoError(t, err)
	assert.Equal(t, domain.DisplayDetailed, updated.DisplayMode)

	current, err := svc.GetCurrent(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, current.Nodes, 1)
	assert.Equal(t, "JEUNE", current.Nodes[0].Branches[0].Code)
	assert.Equal(t, domain.DisplayDetailed, current.DisplayMode)

	// empty mode keeps the current one
	_, err = svc.Update(ctx, tree.ID, []domain.DecisionNode{ageNode(), seniorityNode()}, "")
	require.NoError(t, err)
	current, err = svc.Get(ctx, tree.ID)
	require.NoError(t, err)
	assert.Len(t, current.Nodes, 2)
	assert.Equal(t, domain.DisplayDetailed, current.DisplayMode)
}

func TestTreeService_Create_UnknownSchedule(t *testing.T) {
	ctx, svc, _, _ := setupTreeService(t)
	_, err := svc.Create(ctx, "missing")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTreeService_Update_Rejections(t *testing.T) {
	ctx, svc, _, s := setupTreeService(t)
	tree, err := svc.Create(ctx, s.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, tree.ID, nil, "flat")
	assert.True(t, domain.IsValidation(err))

	// a QF branch in an AGE node
	bad := ageNode()
	bad.Branches[0].Condition = domain.QFCondition{Min: f64(100)}
	_, err = svc.Update(ctx, tree.ID, []domain.DecisionNode{bad}, "")
	assert.True(t, domain.IsValidation(err))

	// five levels against a limit of four
	deep := ageNode()
	cur := &deep
	for range 4 {
		child := ageNode()
		cur.Branches[1].Children = []domain.DecisionNode{child}
		cur = &cur.Branches[1].Children[0]
	}
	_, err = svc.Update(ctx, tree.ID, []domain.DecisionNode{deep}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deeper than 4")

	stored, err := svc.Get(ctx, tree.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Nodes)
}

func TestTreeService_LockedTreeIsImmutable(t *testing.T) {
	ctx, svc, repos, s := setupTreeService(t)
	tree, err := svc.Create(ctx, s.ID)
	require.NoError(t, err)

	changed, err := svc.Lock(ctx, tree.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Lock(ctx, tree.ID)
	require.NoError(t, err)
	assert.False(t, changed, "second lock is a no-op")

	events, err := repos.Trees.CountLockEvents(ctx, tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, events)

	_, err = svc.Update(ctx, tree.ID, []domain.DecisionNode{ageNode()}, "")
	require.Error(t, err)
	assert.True(t, domain.IsLocked(err))
	var locked *domain.LockedResourceError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, tree.ID, locked.ID)
	assert.NotNil(t, locked.LockedAt)
}

func TestTreeService_LockedCheckedBeforeNodeValidation(t *testing.T) {
	ctx, svc, _, s := setupTreeService(t)
	tree, err := svc.Create(ctx, s.ID)
	require.NoError(t, err)
	_, err = svc.Lock(ctx, tree.ID)
	require.NoError(t, err)

	bad := ageNode()
	bad.ID = ""
	_, err = svc.Update(ctx, tree.ID, []domain.DecisionNode{bad}, "")
	require.Error(t, err)
	assert.True(t, domain.IsLocked(err))
	assert.False(t, domain.IsValidation(err))
}

func TestTreeService_UnknownTreeIsValidationError(t *testing.T) {
	ctx, svc, _, _ := setupTreeService(t)

	_, err := svc.Get(ctx, "missing")
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Update(ctx, "missing", []domain.DecisionNode{ageNode()}, "")
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Lock(ctx, "missing")
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Duplicate(ctx, "missing")
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTreeService_DuplicateLocked(t *testing.T) {
	ctx, svc, _, s := setupTreeService(t)
	tree, err := svc.Create(ctx, s.ID)
	require.NoError(t, err)
	_, err = svc.Update(ctx, tree.ID, []domain.DecisionNode{ageNode()}, "")
	require.NoError(t, err)
	_, err = svc.Lock(ctx, tree.ID)
	require.NoError(t, err)

	copied, err := svc.Duplicate(ctx, tree.ID)
	require.NoError(t, err)
	assert.NotEqual(t, tree.ID, copied.ID)
	assert.Equal(t, 2, copied.Version)
	assert.False(t, copied.Locked)

	original, err := svc.Get(ctx, tree.ID)
	require.NoError(t, err)
	require.Len(t, copied.Nodes, 1)
	assert.NotEqual(t, original.Nodes[0].ID, copied.Nodes[0].ID, "nodes get fresh ids")
	assert.NotEqual(t, original.Nodes[0].Branches[0].ID, copied.Nodes[0].Branches[0].ID)
	assert.Equal(t, original.Nodes[0].Branches[0].Code, copied.Nodes[0].Branches[0].Code)
	assert.True(t, original.Locked)
	assert.False(t, original.Current())

	current, err := svc.GetCurrent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, copied.ID, current.ID)

	versions, err := svc.ListVersions(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)

	// the copy is editable
	_, err = svc.Update(ctx, copied.ID, []domain.DecisionNode{ageNode(), seniorityNode()}, "")
	require.NoError(t, err)

	// the superseded version cannot be duplicated again
	_, err = svc.Duplicate(ctx, tree.ID)
	assert.True(t, domain.IsValidation(err))
}

func TestTreeService_DuplicateUnlockedBumpsVersion(t *testing.T) {
	ctx, svc, _, s := setupTreeService(t)
	tree, err := svc.Create(ctx, s.ID)
	require.NoError(t, err)

	bumped, err := svc.Duplicate(ctx, tree.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.ID, bumped.ID)
	assert.Equal(t, 2, bumped.Version)

	versions, err := svc.ListVersions(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func f64(v float64) *float64 { return &v }
