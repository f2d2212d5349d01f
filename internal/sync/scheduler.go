package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stayledger/backend/internal/storage/models"
	"github.com/stayledger/backend/pkg/logger"
)

// ConnectionDirectory is the registry view the scheduler needs: enumeration
// to keep its jobs in step with the connect flow, and lookup so each run
// sees the connection's current settings.
type ConnectionDirectory interface {
	Get(ctx context.Context, propertyID string, platform models.Platform) (*models.SyncConnection, error)
	List(ctx context.Context) ([]models.SyncConnection, error)
}

// ProgressSink receives every progress event from scheduler-triggered
// runs, typically for broadcast to dashboard clients.
type ProgressSink interface {
	SyncProgress(conn models.SyncConnection, ev ProgressEvent)
}

// scheduledJob pairs a cron entry with the cadence it was created for, so a
// refresh can tell a re-cadenced connection from an unchanged one.
type scheduledJob struct {
	entryID cron.EntryID
	cadence int
}

// Scheduler re-invokes sync runs on each connection's cadence. The engine
// API never self-schedules; this is the surrounding application's periodic
// trigger, kept next to the service it drives.
type Scheduler struct {
	cron        *cron.Cron
	service     *Service
	connections ConnectionDirectory
	sink        ProgressSink
	log         logger.Logger

	jobs   map[string]scheduledJob
	jobsMu gosync.RWMutex
}

// NewScheduler creates a scheduler over the given service and registry.
// The sink may be nil.
func NewScheduler(service *Service, connections ConnectionDirectory, sink ProgressSink, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		service:     service,
		connections: connections,
		sink:        sink,
		log:         log,
		jobs:        make(map[string]scheduledJob),
	}
}

// Start schedules every registered connection and begins the cron loop.
// A refresh job picks up connections added or changed after startup.
func (s *Scheduler) Start(ctx context.Context) error {
	connections, err := s.connections.List(ctx)
	if err != nil {
		return fmt.Errorf("listing connections: %w", err)
	}

	for _, conn := range connections {
		s.ScheduleConnection(conn)
	}

	s.cron.AddFunc("@every 5m", func() {
		s.refreshSchedules(context.Background())
	})

	s.cron.Start()
	s.log.Info("sync scheduler started", "connections", len(connections))

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("sync scheduler stopped")
}

func jobKey(propertyID string, platform models.Platform) string {
	return propertyID + "/" + string(platform)
}

// ScheduleConnection adds or re-cadences a connection's sync job. An
// unchanged cadence leaves the existing job alone: replacing an @every
// entry resets its timer, and a refresh must not starve long cadences.
// Feed settings are re-read from the registry on every run, so only the
// cadence matters here.
func (s *Scheduler) ScheduleConnection(conn models.SyncConnection) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	key := jobKey(conn.PropertyID, conn.Platform)
	cadence := models.NormalizeCadence(conn.CadenceMinutes)

	if existing, exists := s.jobs[key]; exists {
		if existing.cadence == cadence {
			return
		}
		s.cron.Remove(existing.entryID)
		delete(s.jobs, key)
	}

	propertyID, platform := conn.PropertyID, conn.Platform
	spec := "@every " + (time.Duration(cadence) * time.Minute).String()

	entryID, err := s.cron.AddFunc(spec, func() {
		s.runSync(propertyID, platform)
	})
	if err != nil {
		s.log.Error("failed to schedule connection", "connection", key, "error", err)
		return
	}

	s.jobs[key] = scheduledJob{entryID: entryID, cadence: cadence}
	s.log.Info("scheduled connection", "connection", key, "cadence_minutes", cadence)
}

// UnscheduleConnection removes a connection's sync job.
func (s *Scheduler) UnscheduleConnection(propertyID string, platform models.Platform) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	key := jobKey(propertyID, platform)
	if job, exists := s.jobs[key]; exists {
		s.cron.Remove(job.entryID)
		delete(s.jobs, key)
		s.log.Info("unscheduled connection", "connection", key)
	}
}

// TriggerSync runs an immediate sync for a connection in the background.
func (s *Scheduler) TriggerSync(conn models.SyncConnection) {
	go s.runSync(conn.PropertyID, conn.Platform)
}

// runSync drains one sync run, forwarding progress to the sink. The
// connection is re-read so the run and its broadcasts reflect settings
// changed since scheduling.
func (s *Scheduler) runSync(propertyID string, platform models.Platform) {
	ctx := context.Background()

	conn, err := s.connections.Get(ctx, propertyID, platform)
	if err != nil {
		s.log.Error("failed to load connection for scheduled sync",
			"connection", jobKey(propertyID, platform), "error", err)
		return
	}
	if conn == nil {
		// Deleted since scheduling; the refresh loop will drop the job.
		return
	}

	for ev := range s.service.Sync(ctx, propertyID, platform) {
		if s.sink != nil {
			s.sink.SyncProgress(*conn, ev)
		}
	}
}

// refreshSchedules reconciles jobs with the registry, picking up new or
// re-cadenced connections and dropping removed ones.
func (s *Scheduler) refreshSchedules(ctx context.Context) {
	connections, err := s.connections.List(ctx)
	if err != nil {
		s.log.Error("failed to refresh sync schedules", "error", err)
		return
	}

	current := make(map[string]bool)
	for _, conn := range connections {
		current[jobKey(conn.PropertyID, conn.Platform)] = true
		s.ScheduleConnection(conn)
	}

	s.jobsMu.Lock()
	for key, job := range s.jobs {
		if !current[key] {
			s.cron.Remove(job.entryID)
			delete(s.jobs, key)
			s.log.Info("removed schedule", "connection", key)
		}
	}
	s.jobsMu.Unlock()
}

// ScheduledConnections returns the keys of currently scheduled jobs.
func (s *Scheduler) ScheduledConnections() []string {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	keys := make([]string, 0, len(s.jobs))
	for key := range s.jobs {
		keys = append(keys, key)
	}
	return keys
}
