// Package timeres canonicalizes calendar timestamps. A stored value is a
// wall-clock reading plus a zone kind; nothing else in the engine may
// compare raw readings across zones. Everything resolves to an absolute
// instant first.
package timeres

import (
	"fmt"
	"sync"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/apperr"
	"github.com/xfce-mirror/orage-sub000/internal/models"
)

type Resolver struct {
	local *time.Location

	mu    sync.Mutex
	cache map[string]*time.Location
}

// New builds a resolver whose floating values resolve in the named zone.
// An empty name or "Local" selects the process-local zone.
func New(localZone string) (*Resolver, error) {
	loc := time.Local
	if localZone != "" && localZone != "Local" {
		var err error
		loc, err = time.LoadLocation(localZone)
		if err != nil {
			return nil, fmt.Errorf("%w: local zone %q: %v", apperr.ErrZoneResolution, localZone, err)
		}
	}
	return &Resolver{
		local: loc,
		cache: make(map[string]*time.Location),
	}, nil
}

// Local returns the configured local zone.
func (r *Resolver) Local() *time.Location {
	return r.local
}

// lookup resolves a named zone through the tz database, caching results.
// UTC and the local zone never fail; anything else may.
func (r *Resolver) lookup(zoneID string) (*time.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if loc, ok := r.cache[zoneID]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", apperr.ErrZoneResolution, zoneID, err)
	}
	r.cache[zoneID] = loc
	return loc, nil
}

// Resolve turns a stored reading into an absolute instant. All-day values
// carry no time-of-day and resolve to midnight UTC for the duration of
// the computation only; the stored value is never mutated.
func (r *Resolver) Resolve(ts models.TimeSpec, allDay bool) (time.Time, error) {
	if ts.IsZero() {
		return time.Time{}, fmt.Errorf("cannot resolve an empty time value")
	}
	w := ts.Wall
	if allDay {
		return time.Date(w.Year(), w.Month(), w.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	var loc *time.Location
	switch ts.Zone {
	case models.ZoneUTC:
		loc = time.UTC
	case models.ZoneFloating, "":
		loc = r.local
	case models.ZoneNamed:
		var err error
		loc, err = r.lookup(ts.ZoneID)
		if err != nil {
			return time.Time{}, err
		}
	default:
		return time.Time{}, fmt.Errorf("%w: unknown zone kind %q", apperr.ErrZoneResolution, ts.Zone)
	}
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, loc), nil
}

// ToLocal re-expresses an instant in the configured local zone.
func (r *Resolver) ToLocal(t time.Time) time.Time {
	return t.In(r.local)
}

// Respec re-expresses an instant in the representation of a template
// spec: same zone kind and id, new wall reading. Used when archiving
// advances a record's stored window.
func (r *Resolver) Respec(instant time.Time, like models.TimeSpec, allDay bool) (models.TimeSpec, error) {
	var loc *time.Location
	switch {
	case allDay:
		loc = time.UTC
	case like.Zone == models.ZoneUTC:
		loc = time.UTC
	case like.Zone == models.ZoneNamed:
		var err error
		loc, err = r.lookup(like.ZoneID)
		if err != nil {
			return models.TimeSpec{}, err
		}
	default:
		loc = r.local
	}
	w := instant.In(loc)
	return models.TimeSpec{
		Wall:   time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, time.UTC),
		Zone:   like.Zone,
		ZoneID: like.ZoneID,
	}, nil
}

// EffectiveEnd resolves the record's end instant: the explicit end, or
// start plus duration, falling back to the start itself when the record
// has neither.
func (r *Resolver) EffectiveEnd(rec *models.CalendarRecord) (time.Time, error) {
	start, err := r.Resolve(rec.Start, rec.AllDay)
	if err != nil {
		return time.Time{}, err
	}
	if rec.UseDuration {
		return start.Add(rec.Duration), nil
	}
	if rec.End.IsZero() {
		return start, nil
	}
	return r.Resolve(rec.End, rec.AllDay)
}
