package reward

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
)

// MilestoneThresholds are the streak lengths that mint a milestone
// achievement, in ascending order.
var MilestoneThresholds = []int{3, 7, 14, 30, 60, 100}

// ClaimTTL is how long a redemption code stays valid after claiming.
const ClaimTTL = 14 * 24 * time.Hour

// InsufficientFundsError reports how far short the claimant's balance falls,
// per currency. At least one field is nonzero.
type InsufficientFundsError struct {
	MissingPoints    int `json:"missing_points"`
	MissingAllowance int `json:"missing_allowance"`
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: missing %d points, %d kr", e.MissingPoints, e.MissingAllowance)
}

// Engine handles reward claiming and streak milestones.
type Engine struct {
	rewards *store.RewardStore
	users   *store.UserStore
	logger  *slog.Logger
}

func NewEngine(rewards *store.RewardStore, users *store.UserStore, logger *slog.Logger) *Engine {
	return &Engine{rewards: rewards, users: users, logger: logger}
}

// Claim spends a user's balance on a reward. The claim row itself is the
// deduction (balances are derived from earned minus spent), so the check and
// the claim insert cannot leave a half-applied spend behind. Both costs are
// checked before anything is written; a shortfall in either currency returns
// an *InsufficientFundsError covering both.
func (e *Engine) Claim(reward *model.Reward, userID int64) (*model.ClaimedReward, error) {
	if !reward.IsActive {
		return nil, fmt.Errorf("reward %d is not active", reward.ID)
	}

	balance, err := e.users.GetBalance(userID)
	if err != nil {
		return nil, err
	}

	insufficient := &InsufficientFundsError{}
	if balance.Points < reward.PointsCost {
		insufficient.MissingPoints = reward.PointsCost - balance.Points
	}
	if balance.Allowance < reward.AllowanceCost {
		insufficient.MissingAllowance = reward.AllowanceCost - balance.Allowance
	}
	if insufficient.MissingPoints > 0 || insufficient.MissingAllowance > 0 {
		return nil, insufficient
	}

	expiresAt := time.Now().Add(ClaimTTL)
	claim, err := e.rewards.CreateClaim(reward, userID, uuid.NewString(), &expiresAt)
	if err != nil {
		return nil, err
	}

	e.logger.Info("reward claimed",
		"claim_id", claim.ID,
		"reward_id", reward.ID,
		"user_id", userID,
		"points_spent", claim.PointsSpent,
		"allowance_spent", claim.AllowanceSpent)
	return claim, nil
}

// CheckMilestones records any milestone the streak has newly reached and
// returns the achievements created. Thresholds already recorded for this
// streak are skipped, so re-checking after every completion is safe.
func (e *Engine) CheckMilestones(st *model.Streak, taskTitle string) ([]int, error) {
	if st == nil || !st.IsActive {
		return nil, nil
	}

	var reached []int
	for _, threshold := range MilestoneThresholds {
		if st.CurrentStreak < threshold {
			break
		}
		title := fmt.Sprintf("%s: %d in a row!", taskTitle, threshold)
		created, err := e.rewards.RecordMilestone(st, threshold, title)
		if err != nil {
			return reached, fmt.Errorf("record milestone %d: %w", threshold, err)
		}
		if created {
			reached = append(reached, threshold)
		}
	}
	return reached, nil
}
