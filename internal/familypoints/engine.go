package familypoints

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
)

// ErrGoalNotReached means the family's point pool is still short of the
// goal's target.
var ErrGoalNotReached = errors.New("family goal target not reached")

// Engine manages the shared family point pool fed by family tasks.
type Engine struct {
	points *store.FamilyPointsStore
	logger *slog.Logger
}

func NewEngine(points *store.FamilyPointsStore, logger *slog.Logger) *Engine {
	return &Engine{points: points, logger: logger}
}

// AddPointsForActivity credits a family task's points to the shared pool once
// enough participants took part. Nothing is written when the count falls
// short.
func (e *Engine) AddPointsForActivity(task *model.Task, participants []int64) (*model.FamilyActivity, error) {
	if !task.IsFamily {
		return nil, fmt.Errorf("task %d is not a family task", task.ID)
	}
	if len(participants) < task.RequiredParticipants {
		return nil, fmt.Errorf("family task needs %d participants, got %d",
			task.RequiredParticipants, len(participants))
	}

	activity, err := e.points.AddActivity(task.FamilyID, task.ID, participants, task.Points)
	if err != nil {
		return nil, err
	}

	e.logger.Info("family activity recorded",
		"activity_id", activity.ID,
		"task_id", task.ID,
		"points", task.Points,
		"participants", len(participants))
	return activity, nil
}

// CompleteGoal redeems a goal, deducting its target from the pool. The pool
// must already hold the target; redeeming a completed goal fails with
// store.ErrGoalCompleted.
func (e *Engine) CompleteGoal(goal *model.FamilyGoal, completedBy int64) (*model.FamilyGoal, error) {
	total, err := e.points.GetTotal(goal.FamilyID)
	if err != nil {
		return nil, err
	}
	if total.TotalPoints < goal.TargetPoints {
		return nil, ErrGoalNotReached
	}

	completed, err := e.points.CompleteGoal(goal.ID, goal.TargetPoints, completedBy, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	e.logger.Info("family goal completed",
		"goal_id", goal.ID,
		"family_id", goal.FamilyID,
		"points_spent", goal.TargetPoints)
	return completed, nil
}

// Progress reports how far the pool has come toward a goal, as a percentage
// clamped to [0, 100].
func Progress(total *model.FamilyPointsTotal, goal *model.FamilyGoal) int {
	if goal.TargetPoints <= 0 {
		return 100
	}
	pct := total.TotalPoints * 100 / goal.TargetPoints
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
