// Package scheduler provides automated lab directory reloads and health
// monitoring for the lab records API. It handles cron-based directory
// refreshes and coordinates reload operations with the data container
// using dependency injection.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kestrelhealth/labrecords-api/interfaces"
	"github.com/kestrelhealth/labrecords-api/labdirectory"
	"github.com/kestrelhealth/labrecords-api/logging"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler handles directory reloads and health monitoring using dependency injection
type Scheduler struct {
	store         interfaces.DirectoryStore
	directoryPath string
	refreshHours  int
	scheduler     *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies.
// directoryPath may be empty, in which case the embedded directory is used.
func NewScheduler(store interfaces.DirectoryStore, directoryPath string, refreshHours int) *Scheduler {
	return &Scheduler{
		store:         store,
		directoryPath: directoryPath,
		refreshHours:  refreshHours,
		scheduler:     gocron.NewScheduler(time.Local),
	}
}

// Start initializes the scheduler with directory reloads and health monitoring
func (s *Scheduler) Start() error {
	// Initial load
	if err := s.reloadDirectory(); err != nil {
		logging.Error("Failed to perform initial directory load", "error", err)
		return fmt.Errorf("initial directory load failed: %w", err)
	}

	_, err := s.scheduler.Every(s.refreshHours).Hours().Do(func() {
		if err := s.reloadDirectory(); err != nil {
			logging.Error("Failed to reload lab directory", "error", err)
		}
	})

	if err != nil {
		logging.Error("Failed to schedule directory reloads", "error", err)
		return fmt.Errorf("failed to schedule directory reloads: %w", err)
	}

	s.scheduler.StartAsync()

	// Start health monitoring
	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// reloadDirectory loads the lab directory and swaps it into the store
func (s *Scheduler) reloadDirectory() error {
	// Prevent concurrent reloads
	if !s.store.BeginUpdate() {
		logging.Info("Directory reload already in progress, skipping...")
		return nil
	}
	defer s.store.EndUpdate()

	logging.Info(fmt.Sprintf("Starting directory reload at: %s", time.Now().Format(time.RFC3339)))
	start := time.Now()

	var directory *labdirectory.Directory
	var err error
	if s.directoryPath != "" {
		directory, err = labdirectory.LoadFile(s.directoryPath)
	} else {
		directory, err = labdirectory.Load()
	}
	if err != nil {
		logging.Error("Failed to load lab directory", "error", err, "path", s.directoryPath)
		return fmt.Errorf("failed to load lab directory: %w", err)
	}

	if directory.Len() == 0 {
		logging.Error("Loaded lab directory is empty", "path", s.directoryPath)
		return fmt.Errorf("loaded lab directory is empty")
	}

	// Atomic swap using the injected store
	s.store.UpdateDirectory(directory)

	elapsed := time.Since(start)
	logging.Info("Directory reload completed", "duration", elapsed.String(), "lab_count", directory.Len())

	return nil
}

// startHealthMonitoring monitors the freshness of the loaded directory
func (s *Scheduler) startHealthMonitoring() {
	staleAfter := time.Duration(s.refreshHours)*time.Hour + time.Hour

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			lastReloaded := s.store.GetLastReloaded()
			if time.Since(lastReloaded) > staleAfter {
				logging.Warn("Lab directory hasn't been reloaded past its refresh interval",
					"last_reload", lastReloaded.Format(time.RFC3339))
			}
		}
	}()
}
