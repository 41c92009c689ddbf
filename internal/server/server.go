package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kallevik/stjerne/internal/backup"
	"github.com/kallevik/stjerne/internal/familypoints"
	"github.com/kallevik/stjerne/internal/handler"
	"github.com/kallevik/stjerne/internal/middleware"
	"github.com/kallevik/stjerne/internal/push"
	"github.com/kallevik/stjerne/internal/reward"
	"github.com/kallevik/stjerne/internal/store"
	"github.com/kallevik/stjerne/internal/streak"
	"github.com/kallevik/stjerne/internal/sweep"
	ws "github.com/kallevik/stjerne/internal/websocket"
)

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	familyH     *handler.FamilyHandler
	userH       *handler.UserHandler
	taskH       *handler.TaskHandler
	completionH *handler.CompletionHandler
	rewardH     *handler.RewardHandler
	allowanceH  *handler.AllowanceHandler
	streakH     *handler.StreakHandler
	goalH       *handler.FamilyGoalHandler
	celebH      *handler.CelebrationHandler
	pushH       *handler.PushHandler
	backupH     *handler.BackupHandler
	exportH     *handler.ExportHandler

	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter

	backupManager *backup.Manager
	scheduler     *sweep.Scheduler
	logger        *slog.Logger
}

// Config holds server wiring configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Backup          backup.Config
	SweepInterval   time.Duration
	ReminderAge     time.Duration
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyStore := store.NewFamilyStore(db)
	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	streakStore := store.NewStreakStore(db)
	rewardStore := store.NewRewardStore(db)
	celebStore := store.NewCelebrationStore(db)
	allowanceStore := store.NewAllowanceStore(db)
	pointsStore := store.NewFamilyPointsStore(db)
	sessionStore := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)
	exportStore := store.NewExportStore(db)

	streakEngine := streak.NewEngine(streakStore, taskStore, logger.With("component", "streak"))
	rewardEngine := reward.NewEngine(rewardStore, userStore, logger.With("component", "reward"))
	pointsEngine := familypoints.NewEngine(pointsStore, logger.With("component", "familypoints"))

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, func(status backup.Status) {
		// Backup state changes go out to every family; the kiosk settings
		// screen listens for them.
		hub.BroadcastAll(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: "status",
			Extra: map[string]any{
				"in_progress": status.InProgress,
				"error":       status.LastError,
			},
		})
	}, logger.With("component", "backup"))

	scheduler := sweep.NewScheduler(
		streakEngine, familyStore, taskStore, sessionStore, celebStore,
		pushStore, pushSvc, cfg.SweepInterval, cfg.ReminderAge,
		logger.With("component", "sweep"),
	)

	rateLimiter := middleware.NewRateLimiter()

	return &Server{
		db:  db,
		hub: hub,

		familyH:     handler.NewFamilyHandler(familyStore, logger.With("component", "family")),
		userH:       handler.NewUserHandler(userStore, familyStore, sessionStore, rateLimiter, logger.With("component", "user")),
		taskH:       handler.NewTaskHandler(taskStore, userStore, hub, logger.With("component", "task")),
		completionH: handler.NewCompletionHandler(taskStore, streakEngine, rewardEngine, hub, logger.With("component", "completion")),
		rewardH:     handler.NewRewardHandler(rewardStore, userStore, rewardEngine, hub, logger.With("component", "reward")),
		allowanceH:  handler.NewAllowanceHandler(allowanceStore, taskStore, userStore, hub, logger.With("component", "allowance")),
		streakH:     handler.NewStreakHandler(streakStore, streakEngine, logger.With("component", "streak")),
		goalH:       handler.NewFamilyGoalHandler(pointsStore, taskStore, pointsEngine, hub, logger.With("component", "familygoal")),
		celebH:      handler.NewCelebrationHandler(celebStore, logger.With("component", "celebration")),
		pushH:       handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push")),
		backupH:     handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup")),
		exportH:     handler.NewExportHandler(exportStore, logger.With("component", "export")),

		sessionStore:  sessionStore,
		userStore:     userStore,
		rateLimiter:   rateLimiter,
		backupManager: backupMgr,
		scheduler:     scheduler,
		logger:        logger,
	}
}

// Scheduler returns the background sweep scheduler so main can run it.
func (s *Server) Scheduler() *sweep.Scheduler {
	return s.scheduler
}

// Router builds the full route table. Child mode needs no authentication;
// everything that changes family configuration or settles money sits behind
// the parent session middleware.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Families
	mux.HandleFunc("GET /api/families", s.familyH.List)
	mux.HandleFunc("POST /api/families", s.familyH.Create)
	mux.HandleFunc("GET /api/families/{id}", s.familyH.Get)

	// Users
	mux.HandleFunc("GET /api/families/{id}/users", s.userH.List)
	mux.HandleFunc("GET /api/users/{id}", s.userH.Get)
	mux.HandleFunc("GET /api/users/{id}/balance", s.userH.Balance)

	// Parent session
	mux.HandleFunc("POST /api/users/{id}/pin/verify", s.userH.VerifyPIN)
	mux.HandleFunc("POST /api/logout", s.userH.Logout)

	// Tasks (reads and child-side completion)
	mux.HandleFunc("GET /api/families/{id}/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/users/{id}/tasks", s.taskH.ListByUser)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)

	// Streaks
	mux.HandleFunc("GET /api/users/{id}/streaks", s.streakH.ListByUser)
	mux.HandleFunc("GET /api/families/{id}/holidays", s.streakH.ListHolidays)

	// Rewards (browsing and claiming are child mode)
	mux.HandleFunc("GET /api/families/{id}/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards/{id}/claim", s.rewardH.Claim)
	mux.HandleFunc("GET /api/users/{id}/claims", s.rewardH.ListClaims)
	mux.HandleFunc("GET /api/users/{id}/achievements", s.rewardH.ListAchievements)

	// Allowance
	mux.HandleFunc("GET /api/users/{id}/allowance", s.allowanceH.Weekly)
	mux.HandleFunc("GET /api/users/{id}/payments", s.allowanceH.ListPayments)

	// Family points
	mux.HandleFunc("GET /api/families/{id}/points", s.goalH.Total)
	mux.HandleFunc("GET /api/families/{id}/activities", s.goalH.ListActivities)
	mux.HandleFunc("POST /api/activities", s.goalH.CreateActivity)
	mux.HandleFunc("GET /api/families/{id}/goals", s.goalH.ListGoals)

	// Celebrations
	mux.HandleFunc("GET /api/families/{id}/celebrations", s.celebH.ListPending)
	mux.HandleFunc("GET /api/families/{id}/celebrations/next", s.celebH.Next)
	mux.HandleFunc("POST /api/celebrations/{id}/ack", s.celebH.Acknowledge)

	// Push subscriptions
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	// Parent-gated routes
	parentMux := http.NewServeMux()
	s.registerParentRoutes(parentMux)
	requireParent := middleware.RequireParent(s.sessionStore, s.userStore)
	mux.Handle("/api/parent/", http.StripPrefix("/api/parent", requireParent(parentMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) registerParentRoutes(mux *http.ServeMux) {
	// User management
	mux.HandleFunc("POST /users", s.userH.Create)
	mux.HandleFunc("PUT /users/{id}", s.userH.Update)
	mux.HandleFunc("DELETE /users/{id}", s.userH.Delete)
	mux.HandleFunc("POST /users/{id}/pin", s.userH.SetPIN)
	mux.HandleFunc("DELETE /users/{id}/pin", s.userH.ClearPIN)

	// Task management
	mux.HandleFunc("POST /tasks", s.taskH.Create)
	mux.HandleFunc("PUT /tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /tasks/{id}", s.taskH.Delete)

	// Completion review
	mux.HandleFunc("GET /families/{id}/completions/pending", s.completionH.ListPending)
	mux.HandleFunc("POST /completions/{id}/approve", s.completionH.Approve)
	mux.HandleFunc("POST /completions/{id}/reject", s.completionH.Reject)

	// Reward management
	mux.HandleFunc("POST /rewards", s.rewardH.Create)
	mux.HandleFunc("PUT /rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("DELETE /rewards/{id}", s.rewardH.Delete)

	// Allowance payments
	mux.HandleFunc("POST /users/{id}/payments", s.allowanceH.CreatePayment)
	mux.HandleFunc("POST /payments/{id}/paid", s.allowanceH.MarkPaid)
	mux.HandleFunc("POST /payments/{id}/cancel", s.allowanceH.Cancel)

	// Streaks and holidays
	mux.HandleFunc("POST /streaks/check", s.streakH.Check)
	mux.HandleFunc("POST /holidays", s.streakH.CreateHoliday)
	mux.HandleFunc("DELETE /holidays/{id}", s.streakH.DeleteHoliday)

	// Family goals
	mux.HandleFunc("POST /goals", s.goalH.CreateGoal)
	mux.HandleFunc("POST /goals/{id}/complete", s.goalH.CompleteGoal)
	mux.HandleFunc("DELETE /goals/{id}", s.goalH.DeleteGoal)

	// Backups and data transfer
	mux.HandleFunc("GET /backups/status", s.backupH.Status)
	mux.HandleFunc("GET /backups", s.backupH.History)
	mux.HandleFunc("POST /backups", s.backupH.RunNow)
	mux.HandleFunc("POST /backups/{id}/restore", s.backupH.Restore)
	mux.HandleFunc("GET /families/{id}/export", s.exportH.Export)
	mux.HandleFunc("POST /import", s.exportH.Import)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
