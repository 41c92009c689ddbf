package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/push"
	"github.com/kallevik/stjerne/internal/store"
	"github.com/kallevik/stjerne/internal/streak"
)

// Scheduler runs the periodic background jobs: the daily streak check,
// approval reminders for parents, celebration push fan-out, and expired
// session cleanup.
type Scheduler struct {
	mu       sync.RWMutex
	streaks  *streak.Engine
	families *store.FamilyStore
	tasks    *store.TaskStore
	sessions *store.SessionStore
	celebs   *store.CelebrationStore
	pushes   *store.PushStore
	service  *push.Service
	logger   *slog.Logger

	interval    time.Duration
	reminderAge time.Duration

	// in-memory dedup state; a restart re-sends at most one reminder
	lastStreakDay   string
	lastReminderDay map[int64]string
	lastCelebID     int64

	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(
	streaks *streak.Engine,
	families *store.FamilyStore,
	tasks *store.TaskStore,
	sessions *store.SessionStore,
	celebs *store.CelebrationStore,
	pushes *store.PushStore,
	service *push.Service,
	interval, reminderAge time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		streaks:         streaks,
		families:        families,
		tasks:           tasks,
		sessions:        sessions,
		celebs:          celebs,
		pushes:          pushes,
		service:         service,
		logger:          logger,
		interval:        interval,
		reminderAge:     reminderAge,
		lastReminderDay: make(map[int64]string),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	s.checkStreaks(now)
	s.sendApprovalReminders(now)
	s.notifyCelebrations()
	s.cleanupSessions()
}

// checkStreaks runs the streak lapse check once per calendar day.
func (s *Scheduler) checkStreaks(now time.Time) {
	day := now.Format("2006-01-02")
	if s.lastStreakDay == day {
		return
	}
	s.lastStreakDay = day

	result := s.streaks.DailyCheck(now)
	for _, err := range result.Errors {
		s.logger.Error("streak check", "error", err)
	}
	s.logger.Info("streak check complete",
		"checked", result.Checked,
		"deactivated", result.Deactivated,
		"errors", len(result.Errors))
}

// sendApprovalReminders nudges a family's parents once per day when
// completions have sat unreviewed longer than the reminder age.
func (s *Scheduler) sendApprovalReminders(now time.Time) {
	day := now.Format("2006-01-02")

	families, err := s.families.List()
	if err != nil {
		s.logger.Error("approval reminders: list families", "error", err)
		return
	}

	for _, family := range families {
		if s.lastReminderDay[family.ID] == day {
			continue
		}

		pending, err := s.tasks.ListPendingByFamily(family.ID)
		if err != nil {
			s.logger.Error("approval reminders: list pending", "family_id", family.ID, "error", err)
			continue
		}

		stale := 0
		for _, c := range pending {
			if now.Sub(c.CompletedAt) >= s.reminderAge {
				stale++
			}
		}
		if stale == 0 {
			continue
		}
		s.lastReminderDay[family.ID] = day

		body := fmt.Sprintf("%d completed tasks are waiting for review", stale)
		if stale == 1 {
			body = "1 completed task is waiting for review"
		}
		s.sendToParents(family.ID, push.Payload{
			Title: "Tasks to review",
			Body:  body,
			URL:   "/approvals",
			Tag:   "approval-reminder",
		})
	}
}

// notifyCelebrations pushes each celebration queued since the last tick to
// the family's parents.
func (s *Scheduler) notifyCelebrations() {
	events, err := s.celebs.ListUnnotified(s.lastCelebID)
	if err != nil {
		s.logger.Error("celebration push: list", "error", err)
		return
	}

	for _, ev := range events {
		if ev.ID > s.lastCelebID {
			s.lastCelebID = ev.ID
		}
		s.sendToParents(ev.FamilyID, push.Payload{
			Title: ev.Title,
			Body:  ev.Message,
			URL:   "/",
			Tag:   fmt.Sprintf("celebration-%d", ev.ID),
		})
	}
}

func (s *Scheduler) sendToParents(familyID int64, payload push.Payload) {
	subs, err := s.pushes.ListByRole(familyID, model.RoleParent)
	if err != nil {
		s.logger.Error("push: list parent subscriptions", "family_id", familyID, "error", err)
		return
	}

	for i := range subs {
		if err := s.service.Send(&subs[i], payload); err != nil {
			if errors.Is(err, push.ErrExpired) {
				s.pushes.DeleteByEndpoint(subs[i].Endpoint)
			} else {
				s.logger.Error("push: send", "endpoint", subs[i].Endpoint, "error", err)
			}
		}
	}
}

func (s *Scheduler) cleanupSessions() {
	n, err := s.sessions.DeleteExpired()
	if err != nil {
		s.logger.Error("session cleanup", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}
