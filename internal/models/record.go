package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/constants"
)

type RecordKind string

const (
	KindEvent   RecordKind = "event"
	KindTodo    RecordKind = "todo"
	KindJournal RecordKind = "journal"
)

// ZoneKind says how a TimeSpec's wall reading is interpreted.
type ZoneKind string

const (
	ZoneUTC      ZoneKind = "utc"
	ZoneFloating ZoneKind = "floating"
	ZoneNamed    ZoneKind = "named"
)

// TodoBase selects which instant a todo's recurrence is anchored to.
type TodoBase string

const (
	TodoBaseStart     TodoBase = "start"
	TodoBaseCompleted TodoBase = "completed"
)

// TimeSpec is a wall-clock reading plus the zone kind that gives it
// meaning. The Wall field's location is irrelevant; only its date and
// time-of-day fields count. Resolution to an absolute instant happens in
// the timeres package.
type TimeSpec struct {
	Wall   time.Time
	Zone   ZoneKind
	ZoneID string
}

// IsZero reports whether the spec carries no reading at all.
func (t TimeSpec) IsZero() bool {
	return t.Wall.IsZero()
}

type timeSpecJSON struct {
	Wall   string   `json:"wall"`
	Zone   ZoneKind `json:"zone"`
	ZoneID string   `json:"zone_id,omitempty"`
}

// MarshalJSON writes the wall reading without any offset so that the
// stored value cannot be mistaken for an absolute instant.
func (t TimeSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeSpecJSON{
		Wall:   t.Wall.Format(constants.WallTimeLayout),
		Zone:   t.Zone,
		ZoneID: t.ZoneID,
	})
}

func (t *TimeSpec) UnmarshalJSON(data []byte) error {
	var raw timeSpecJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	wall, err := time.Parse(constants.WallTimeLayout, raw.Wall)
	if err != nil {
		return fmt.Errorf("invalid wall time %q: %w", raw.Wall, err)
	}
	t.Wall = wall
	t.Zone = raw.Zone
	t.ZoneID = raw.ZoneID
	return nil
}

// Equal compares the stored representation, not the resolved instant.
// Cross-zone instant comparison must go through the resolver.
func (t TimeSpec) Equal(o TimeSpec) bool {
	return t.Wall.Equal(o.Wall) && t.Zone == o.Zone && t.ZoneID == o.ZoneID
}

type ExceptionKind string

const (
	ExcludeOccurrence ExceptionKind = "exclude"
	IncludeOccurrence ExceptionKind = "include"
)

// Exception removes a generated occurrence (exclude) or contributes an
// extra explicit one (include). Date-only exceptions match by calendar
// date against date-only occurrences.
type Exception struct {
	At     time.Time     `json:"at"`
	AllDay bool          `json:"all_day"`
	Kind   ExceptionKind `json:"kind"`
}

// AddException is a set-add: an (instant, kind) pair already present is
// not duplicated. The returned slice is the caller's new exception list.
func AddException(list []Exception, e Exception) []Exception {
	for _, x := range list {
		if x.Kind == e.Kind && x.At.Equal(e.At) {
			return list
		}
	}
	return append(list, e)
}

// SortExceptions orders the list ascending by instant. Expansion requires
// the exclusion set in time order.
func SortExceptions(list []Exception) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].At.Before(list[j].At)
	})
}

// ShadowWindow preserves a record's original start/end when archiving
// advances its stored window. Once set it is never overwritten, so the
// true original survives repeated archive runs.
type ShadowWindow struct {
	Start TimeSpec `json:"start"`
	End   TimeSpec `json:"end"`
}

// Trigger is an alarm offset relative to an occurrence.
type Trigger struct {
	Offset       time.Duration `json:"offset"`
	Before       bool          `json:"before"`
	RelatedToEnd bool          `json:"related_to_end"`
}

// AlarmSpec is the alarm configuration a record carries: one trigger plus
// the delivery channels. A record with genuinely different triggers per
// channel is modeled as multiple logical alarms sharing one record id.
type AlarmSpec struct {
	Trigger    Trigger `json:"trigger"`
	Persistent bool    `json:"persistent"`

	DisplayInline bool `json:"display_inline"`
	DisplayNotify bool `json:"display_notify"`
	NotifyTimeout int  `json:"notify_timeout,omitempty"` // seconds

	Audio       bool          `json:"audio"`
	Sound       string        `json:"sound,omitempty"`
	SoundRepeat int           `json:"sound_repeat,omitempty"`
	SoundDelay  time.Duration `json:"sound_delay,omitempty"`

	Procedure bool   `json:"procedure"`
	Command   string `json:"command,omitempty"`
}

// CalendarRecord is one event/todo/journal entity as returned by a
// calendar store. The engine never retains one beyond a computation pass;
// derived state lives in Alarm values instead.
type CalendarRecord struct {
	ID       string     `json:"id"`
	StoreTag string     `json:"store_tag,omitempty"`
	Kind     RecordKind `json:"kind"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	AllDay      bool          `json:"all_day"`
	Start       TimeSpec      `json:"start"`
	End         TimeSpec      `json:"end"`
	UseDuration bool          `json:"use_duration"`
	Duration    time.Duration `json:"duration,omitempty"`

	Completed *TimeSpec `json:"completed,omitempty"` // todo only
	TodoBase  TodoBase  `json:"todo_base,omitempty"`

	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
	Exceptions []Exception     `json:"exceptions,omitempty"`

	Shadow *ShadowWindow `json:"shadow,omitempty"`
	Alarm  *AlarmSpec    `json:"alarm,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *CalendarRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	switch r.Kind {
	case KindEvent, KindTodo, KindJournal:
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	if r.Start.IsZero() {
		return fmt.Errorf("record %s has no start", r.ID)
	}
	if r.UseDuration && r.Duration < 0 {
		return fmt.Errorf("record %s has negative duration", r.ID)
	}
	if r.Completed != nil && r.Kind != KindTodo {
		return fmt.Errorf("record %s: completion time on non-todo", r.ID)
	}
	if r.Recurrence != nil {
		if err := r.Recurrence.Validate(); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
	}
	return nil
}

// Excluded returns the record's exclusion set sorted by instant.
func (r *CalendarRecord) Excluded() []Exception {
	var out []Exception
	for _, e := range r.Exceptions {
		if e.Kind == ExcludeOccurrence {
			out = append(out, e)
		}
	}
	SortExceptions(out)
	return out
}

// Included returns the record's explicit extra occurrences in time order.
func (r *CalendarRecord) Included() []Exception {
	var out []Exception
	for _, e := range r.Exceptions {
		if e.Kind == IncludeOccurrence {
			out = append(out, e)
		}
	}
	SortExceptions(out)
	return out
}
