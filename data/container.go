// Package data provides thread-safe storage for the lab directory.
// It includes the DataContainer struct with atomic operations for
// zero-downtime directory reloads.
package data

import (
	"sync/atomic"
	"time"

	"github.com/kestrelhealth/labrecords-api/interfaces"
	"github.com/kestrelhealth/labrecords-api/labdirectory"
	"github.com/kestrelhealth/labrecords-api/logging"
)

// Compile-time check to ensure DataContainer implements DirectoryStore
var _ interfaces.DirectoryStore = (*DataContainer)(nil)

// DataContainer holds the lab directory behind an atomic pointer for
// zero-downtime reloads
type DataContainer struct {
	directory       atomic.Value // *labdirectory.Directory
	lastReloaded    atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with an empty directory
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.directory.Store(labdirectory.New(nil))
	dc.lastReloaded.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{}) // Initialize with zero value
	return dc
}

// Thread-safe getters with type check

// GetDirectory returns the currently loaded lab directory
func (dc *DataContainer) GetDirectory() *labdirectory.Directory {
	if v := dc.directory.Load(); v != nil {
		if directory, ok := v.(*labdirectory.Directory); ok {
			return directory
		}
	}

	logging.Warn("Lab directory is empty or invalid")
	return labdirectory.New(nil)
}

// GetLastReloaded returns the timestamp of the last directory reload
func (dc *DataContainer) GetLastReloaded() time.Time {
	if v := dc.lastReloaded.Load(); v != nil {
		if lastReloaded, ok := v.(time.Time); ok {
			return lastReloaded
		}
	}

	logging.Warn("Could not get the last reloaded value")
	return time.Time{}
}

// IsUpdating returns true if a directory reload is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateDirectory atomically swaps in a freshly loaded directory
func (dc *DataContainer) UpdateDirectory(directory *labdirectory.Directory) {
	if directory == nil {
		logging.Warn("Refusing to store a nil lab directory")
		return
	}

	// Atomic swap (zero downtime replacement)
	dc.directory.Store(directory)
	dc.lastReloaded.Store(time.Now())
}

// BeginUpdate marks the start of a directory reload operation
// Returns true if the reload can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a directory reload operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
