package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/cadence/internal/types"
	"github.com/hyperengineering/cadence/internal/validation"
)

// Rewards returns all rewards, oldest first.
func (t *Tracker) Rewards() []types.Reward {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneRewards(t.rewards)
}

// AddReward creates a reward. A reward linked to a goal is redeemed for
// free the first time that goal completes.
func (t *Tracker) AddReward(ctx context.Context, in types.NewReward) (types.Reward, error) {
	if err := validationErr(validation.ValidateNewReward(in)); err != nil {
		return types.Reward{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if in.GoalID != nil && !t.goals.Has(*in.GoalID) {
		return types.Reward{}, fmt.Errorf("%w: %d", ErrGoalNotFound, *in.GoalID)
	}

	r := types.Reward{
		ID:          ulid.Make().String(),
		Title:       in.Title,
		Description: in.Description,
		Cost:        in.Cost,
		CreatedAt:   t.now(),
	}
	if in.GoalID != nil {
		id := *in.GoalID
		r.GoalID = &id
	}
	t.rewards = append(t.rewards, r)

	err := t.persistRewards(ctx)
	slog.Info("reward added",
		"component", "service",
		"action", "add_reward",
		"reward_id", r.ID,
	)
	return r, err
}

// DeleteReward removes a reward. Points spent on it are not refunded.
func (t *Tracker) DeleteReward(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.rewardIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRewardNotFound, id)
	}
	t.rewards = slices.Delete(t.rewards, i, i+1)

	err := t.persistRewards(ctx)
	slog.Info("reward deleted",
		"component", "service",
		"action", "delete_reward",
		"reward_id", id,
	)
	return err
}

// RedeemReward buys a reward with available points.
func (t *Tracker) RedeemReward(ctx context.Context, id string) (types.Reward, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.rewardIndex(id)
	if i < 0 {
		return types.Reward{}, fmt.Errorf("%w: %s", ErrRewardNotFound, id)
	}
	r := t.rewards[i]
	if r.IsRedeemed {
		return r, fmt.Errorf("%w: %s", ErrAlreadyRedeemed, id)
	}

	left, err := t.ledger.Spend(ctx, r.Cost)
	if err != nil {
		return r, err
	}

	now := t.now()
	r.IsRedeemed = true
	r.RedeemedAt = &now
	t.rewards[i] = r

	err = t.persistRewards(ctx)
	slog.Info("reward redeemed",
		"component", "service",
		"action", "redeem_reward",
		"reward_id", id,
		"cost", r.Cost,
		"available_points", left,
	)
	return r, err
}

func (t *Tracker) rewardIndex(id string) int {
	return slices.IndexFunc(t.rewards, func(r types.Reward) bool { return r.ID == id })
}

func cloneRewards(in []types.Reward) []types.Reward {
	out := make([]types.Reward, len(in))
	for i, r := range in {
		if r.GoalID != nil {
			id := *r.GoalID
			r.GoalID = &id
		}
		if r.RedeemedAt != nil {
			at := *r.RedeemedAt
			r.RedeemedAt = &at
		}
		out[i] = r
	}
	return out
}
