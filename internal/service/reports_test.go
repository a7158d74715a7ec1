package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/cadence/internal/docstore"
	"github.com/hyperengineering/cadence/internal/exchange"
	"github.com/hyperengineering/cadence/internal/notify"
	"github.com/hyperengineering/cadence/internal/types"
	"github.com/hyperengineering/cadence/internal/validation"
)

func TestStatsAndAchievements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.addGoal(t, types.NewGoal{Target: 1, Points: 120})
	f.addGoal(t, types.NewGoal{Target: 1})
	_, err := f.tracker.FinishGoal(ctx, g.ID)
	require.NoError(t, err)

	s := f.tracker.Stats()
	assert.Equal(t, 2, s.TotalGoals)
	assert.Equal(t, 1, s.CompletedGoals)
	assert.InDelta(t, 50, s.CompletionRate, 1e-9)
	assert.Equal(t, 1, s.CurrentDayStreak)
	assert.Equal(t, int64(120), s.LifetimePoints)

	unlocked := map[string]bool{}
	for _, a := range f.tracker.Achievements() {
		unlocked[a.ID] = a.Unlocked
	}
	assert.True(t, unlocked["first-step"])
	assert.True(t, unlocked["points-100"])
	assert.False(t, unlocked["summit"])
}

func TestExportImport_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.addGoal(t, types.NewGoal{Title: "root", IsUltimate: true})
	child := f.addGoal(t, types.NewGoal{Title: "child", Target: 2, ParentID: int64Ptr(root.ID), Points: 7})
	treat, err := f.tracker.AddReward(ctx, types.NewReward{Title: "Treat", Cost: 3})
	require.NoError(t, err)
	_, err = f.tracker.EditGoal(ctx, root.ID, types.GoalPatch{SubgoalsAwardPoints: ptr(true)})
	require.NoError(t, err)
	_, err = f.tracker.FinishGoal(ctx, child.ID)
	require.NoError(t, err)
	_, err = f.tracker.RedeemReward(ctx, treat.ID)
	require.NoError(t, err)

	raw, err := exchange.Marshal(f.tracker.Export())
	require.NoError(t, err)
	doc, err := exchange.Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	fresh := New(Options{Store: docstore.NewMemoryStore(), Scheduler: notify.NewLogScheduler(), Clock: f.clock.Now})
	_, err = fresh.Load(ctx)
	require.NoError(t, err)

	res, err := fresh.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Goals)
	assert.Equal(t, 1, res.Rewards)
	assert.Equal(t, int64(7), res.PointsAdded)

	before, _ := f.tracker.Goal(child.ID)
	after, err := fresh.Goal(child.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Current, after.Current)
	assert.Equal(t, before.IsComplete, after.IsComplete)
	assert.Equal(t, before.ParentID, after.ParentID)
	assert.Equal(t, f.tracker.Points(), fresh.Points(), "spent points survive the round trip")
	assert.Equal(t, int64(4), fresh.Points().Available)

	res, err = fresh.Import(ctx, doc)
	require.NoError(t, err)
	assert.Zero(t, res.PointsAdded, "importing again never inflates points")
}

func TestImport_RepairsHierarchy(t *testing.T) {
	f := newFixture(t)
	parent := int64(1)
	doc := exchange.Document{
		Goals: []types.Goal{
			{ID: 1, Title: "root", IsUltimate: true, SubGoals: []int64{99}},
			{ID: 2, Title: "child", ParentID: &parent, Target: 1},
			{ID: 3, Title: "orphan", ParentID: ptr(int64(77)), Target: 1},
		},
	}

	_, err := f.tracker.Import(context.Background(), doc)
	require.NoError(t, err)

	root, _ := f.tracker.Goal(1)
	assert.Equal(t, []int64{2}, root.SubGoals)
	orphan, _ := f.tracker.Goal(3)
	assert.Nil(t, orphan.ParentID)
	assert.Equal(t, types.DirectionIncrease, orphan.Direction)
}

func TestImport_RejectsInvalidDocument(t *testing.T) {
	f := newFixture(t)
	doc := exchange.Document{Goals: []types.Goal{{ID: 1}, {ID: 1}}}
	_, err := f.tracker.Import(context.Background(), doc)
	assert.ErrorIs(t, err, exchange.ErrInvalidDocument)
}

func TestImport_ReissuesLegacyRewardIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kept := "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	doc := exchange.Document{
		Rewards: []types.Reward{
			{ID: "legacy-1", Title: "Cinema", Cost: 0},
			{ID: kept, Title: "Book", Cost: 0},
		},
	}

	_, err := f.tracker.Import(ctx, doc)
	require.NoError(t, err)

	rewards := f.tracker.Rewards()
	require.Len(t, rewards, 2)
	assert.NotEqual(t, "legacy-1", rewards[0].ID)
	assert.Nil(t, validation.ValidateULID("id", rewards[0].ID))
	assert.Equal(t, kept, rewards[1].ID)

	_, err = f.tracker.RedeemReward(ctx, rewards[0].ID)
	require.NoError(t, err)
}
