package constants

import "time"

// Store tags. The engine treats them as opaque routing keys; only the
// grammar is fixed: "O" primary, "A" archive, "F00".."F09" foreign mounts.
const (
	PrimaryStoreTag       = "O"
	ArchiveStoreTag       = "A"
	ForeignStoreTagPrefix = "F"
)

// WallTimeLayout is the serialized form of a wall-clock reading. It
// deliberately carries no offset; the zone kind stored next to it decides
// how the reading is interpreted.
const WallTimeLayout = "2006-01-02T15:04:05"

// ActionTimeLayout formats occurrence boundaries in alarm labels.
const ActionTimeLayout = "Mon 2006-01-02 15:04"

const (
	DefaultArchiveMonths = 6
	DefaultArchiveCron   = "@daily"
	DefaultSoundCommand  = "paplay"

	// RebuildRetryInterval is how long the scheduler waits before retrying
	// after a store failure aborted a rebuild.
	RebuildRetryInterval = time.Minute

	// NotificationDurationMs is the default on-screen time for desktop
	// notifications when a record does not set its own timeout.
	NotificationDurationMs = 10000

	NotifierLockfileName = "oragealarmd-tray.lock"
	TrayAppIdentifier    = "oragealarmd-tray"
)
