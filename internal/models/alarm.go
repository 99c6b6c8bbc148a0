package models

import (
	"fmt"
	"sort"
	"time"
)

// Alarm is the derived unit of work the scheduler queues: one pending
// firing for one record, or a free-standing snooze. It carries everything
// dispatch needs so the record itself can be released after computation.
type Alarm struct {
	ID       string `json:"id,omitempty"` // set for temporary alarms only
	RecordID string `json:"record_id,omitempty"`
	StoreTag string `json:"store_tag,omitempty"`

	FireAt time.Time `json:"fire_at"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ActionTime  string `json:"action_time,omitempty"` // occurrence start–end label

	// Persistent alarms survive a process restart through the snapshot
	// file. Temporary alarms are user-created snoozes with no backing
	// record; they are kept across rebuilds instead of being recomputed.
	Persistent bool `json:"persistent"`
	Temporary  bool `json:"temporary,omitempty"`

	DisplayInline bool `json:"display_inline"`
	DisplayNotify bool `json:"display_notify"`
	NotifyTimeout int  `json:"notify_timeout,omitempty"`

	Audio       bool          `json:"audio"`
	Sound       string        `json:"sound,omitempty"`
	SoundRepeat int           `json:"sound_repeat,omitempty"`
	SoundDelay  time.Duration `json:"sound_delay,omitempty"`

	Procedure bool   `json:"procedure"`
	Command   string `json:"command,omitempty"`
}

func (a *Alarm) Validate() error {
	if a.RecordID == "" && !a.Temporary {
		return fmt.Errorf("alarm has neither a record id nor the temporary flag")
	}
	if a.Temporary && a.FireAt.IsZero() {
		return fmt.Errorf("temporary alarm has no firing time")
	}
	return nil
}

// Less orders alarms ascending by firing time; alarms with no firing time
// sort last, and ties break on record id so replays are deterministic.
func (a Alarm) Less(b Alarm) bool {
	switch {
	case a.FireAt.IsZero():
		return false
	case b.FireAt.IsZero():
		return true
	case !a.FireAt.Equal(b.FireAt):
		return a.FireAt.Before(b.FireAt)
	default:
		return a.RecordID < b.RecordID
	}
}

// SortAlarms establishes the pending-list invariant: ascending fire time,
// malformed entries last.
func SortAlarms(alarms []Alarm) {
	sort.SliceStable(alarms, func(i, j int) bool {
		return alarms[i].Less(alarms[j])
	})
}
