package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/apperr"
	"github.com/xfce-mirror/orage-sub000/internal/models"
)

// Composite fields are stored as JSON text columns; the scalar columns
// exist so the table stays greppable with the sqlite3 shell.

type recordRow struct {
	id             string
	kind           string
	title          string
	description    string
	location       string
	allDay         bool
	startJSON      string
	endJSON        sql.NullString
	useDuration    bool
	durationSec    int64
	completedJSON  sql.NullString
	todoBase       string
	recurrenceJSON sql.NullString
	exceptionsJSON string
	shadowJSON     sql.NullString
	alarmJSON      sql.NullString
	createdAt      string
}

const recordColumns = `id, kind, title, description, location, all_day,
	start_json, end_json, use_duration, duration_sec, completed_json,
	todo_base, recurrence_json, exceptions_json, shadow_json, alarm_json,
	created_at`

func (s *Store) AddRecord(rec models.CalendarRecord) error {
	if err := s.writable(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	row, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		row.id, row.kind, row.title, row.description, row.location, row.allDay,
		row.startJSON, row.endJSON, row.useDuration, row.durationSec, row.completedJSON,
		row.todoBase, row.recurrenceJSON, row.exceptionsJSON, row.shadowJSON, row.alarmJSON,
		row.createdAt,
	)
	if err != nil {
		return fmt.Errorf("%w: store %s: inserting record %s: %v", apperr.ErrStoreUnavailable, s.tag, rec.ID, err)
	}
	return nil
}

func (s *Store) ModifyRecord(rec models.CalendarRecord) error {
	if err := s.writable(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	row, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`
		UPDATE records SET
			kind = ?, title = ?, description = ?, location = ?, all_day = ?,
			start_json = ?, end_json = ?, use_duration = ?, duration_sec = ?,
			completed_json = ?, todo_base = ?, recurrence_json = ?,
			exceptions_json = ?, shadow_json = ?, alarm_json = ?
		WHERE id = ?
	`,
		row.kind, row.title, row.description, row.location, row.allDay,
		row.startJSON, row.endJSON, row.useDuration, row.durationSec,
		row.completedJSON, row.todoBase, row.recurrenceJSON,
		row.exceptionsJSON, row.shadowJSON, row.alarmJSON,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: store %s: updating record %s: %v", apperr.ErrStoreUnavailable, s.tag, rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: store %s: %v", apperr.ErrStoreUnavailable, s.tag, err)
	}
	if n == 0 {
		return fmt.Errorf("record %s not found in store %s", rec.ID, s.tag)
	}
	return nil
}

func (s *Store) DeleteRecord(id string) error {
	if err := s.writable(); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: store %s: deleting record %s: %v", apperr.ErrStoreUnavailable, s.tag, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: store %s: %v", apperr.ErrStoreUnavailable, s.tag, err)
	}
	if n == 0 {
		return fmt.Errorf("record %s not found in store %s", id, s.tag)
	}
	return nil
}

func (s *Store) ListRecords() ([]models.CalendarRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT ` + recordColumns + ` FROM records ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: store %s: listing records: %v", apperr.ErrStoreUnavailable, s.tag, err)
	}
	defer rows.Close()

	var out []models.CalendarRecord
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(
			&row.id, &row.kind, &row.title, &row.description, &row.location, &row.allDay,
			&row.startJSON, &row.endJSON, &row.useDuration, &row.durationSec, &row.completedJSON,
			&row.todoBase, &row.recurrenceJSON, &row.exceptionsJSON, &row.shadowJSON, &row.alarmJSON,
			&row.createdAt,
		); err != nil {
			return nil, fmt.Errorf("%w: store %s: scanning record: %v", apperr.ErrStoreUnavailable, s.tag, err)
		}
		rec, err := decodeRecord(row, s.tag)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: store %s: iterating records: %v", apperr.ErrStoreUnavailable, s.tag, err)
	}
	return out, nil
}

func encodeRecord(rec models.CalendarRecord) (recordRow, error) {
	row := recordRow{
		id:          rec.ID,
		kind:        string(rec.Kind),
		title:       rec.Title,
		description: rec.Description,
		location:    rec.Location,
		allDay:      rec.AllDay,
		useDuration: rec.UseDuration,
		durationSec: int64(rec.Duration / time.Second),
		todoBase:    string(rec.TodoBase),
		createdAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if row.todoBase == "" {
		row.todoBase = string(models.TodoBaseStart)
	}

	startJSON, err := json.Marshal(rec.Start)
	if err != nil {
		return row, fmt.Errorf("record %s: marshal start: %w", rec.ID, err)
	}
	row.startJSON = string(startJSON)

	if !rec.End.IsZero() {
		b, err := json.Marshal(rec.End)
		if err != nil {
			return row, fmt.Errorf("record %s: marshal end: %w", rec.ID, err)
		}
		row.endJSON = sql.NullString{String: string(b), Valid: true}
	}
	if rec.Completed != nil {
		b, err := json.Marshal(rec.Completed)
		if err != nil {
			return row, fmt.Errorf("record %s: marshal completed: %w", rec.ID, err)
		}
		row.completedJSON = sql.NullString{String: string(b), Valid: true}
	}
	if rec.Recurrence != nil {
		b, err := json.Marshal(rec.Recurrence)
		if err != nil {
			return row, fmt.Errorf("record %s: marshal recurrence: %w", rec.ID, err)
		}
		row.recurrenceJSON = sql.NullString{String: string(b), Valid: true}
	}
	exceptions := rec.Exceptions
	if exceptions == nil {
		exceptions = []models.Exception{}
	}
	b, err := json.Marshal(exceptions)
	if err != nil {
		return row, fmt.Errorf("record %s: marshal exceptions: %w", rec.ID, err)
	}
	row.exceptionsJSON = string(b)

	if rec.Shadow != nil {
		b, err := json.Marshal(rec.Shadow)
		if err != nil {
			return row, fmt.Errorf("record %s: marshal shadow window: %w", rec.ID, err)
		}
		row.shadowJSON = sql.NullString{String: string(b), Valid: true}
	}
	if rec.Alarm != nil {
		b, err := json.Marshal(rec.Alarm)
		if err != nil {
			return row, fmt.Errorf("record %s: marshal alarm: %w", rec.ID, err)
		}
		row.alarmJSON = sql.NullString{String: string(b), Valid: true}
	}
	return row, nil
}

func decodeRecord(row recordRow, tag string) (models.CalendarRecord, error) {
	rec := models.CalendarRecord{
		ID:          row.id,
		StoreTag:    tag,
		Kind:        models.RecordKind(row.kind),
		Title:       row.title,
		Description: row.description,
		Location:    row.location,
		AllDay:      row.allDay,
		UseDuration: row.useDuration,
		Duration:    time.Duration(row.durationSec) * time.Second,
		TodoBase:    models.TodoBase(row.todoBase),
	}

	if err := json.Unmarshal([]byte(row.startJSON), &rec.Start); err != nil {
		return rec, fmt.Errorf("record %s: unmarshal start: %w", row.id, err)
	}
	if row.endJSON.Valid {
		if err := json.Unmarshal([]byte(row.endJSON.String), &rec.End); err != nil {
			return rec, fmt.Errorf("record %s: unmarshal end: %w", row.id, err)
		}
	}
	if row.completedJSON.Valid {
		var ts models.TimeSpec
		if err := json.Unmarshal([]byte(row.completedJSON.String), &ts); err != nil {
			return rec, fmt.Errorf("record %s: unmarshal completed: %w", row.id, err)
		}
		rec.Completed = &ts
	}
	if row.recurrenceJSON.Valid {
		var rule models.RecurrenceRule
		if err := json.Unmarshal([]byte(row.recurrenceJSON.String), &rule); err != nil {
			return rec, fmt.Errorf("record %s: unmarshal recurrence: %w", row.id, err)
		}
		rec.Recurrence = &rule
	}
	if err := json.Unmarshal([]byte(row.exceptionsJSON), &rec.Exceptions); err != nil {
		return rec, fmt.Errorf("record %s: unmarshal exceptions: %w", row.id, err)
	}
	if row.shadowJSON.Valid {
		var sw models.ShadowWindow
		if err := json.Unmarshal([]byte(row.shadowJSON.String), &sw); err != nil {
			return rec, fmt.Errorf("record %s: unmarshal shadow window: %w", row.id, err)
		}
		rec.Shadow = &sw
	}
	if row.alarmJSON.Valid {
		var spec models.AlarmSpec
		if err := json.Unmarshal([]byte(row.alarmJSON.String), &spec); err != nil {
			return rec, fmt.Errorf("record %s: unmarshal alarm: %w", row.id, err)
		}
		rec.Alarm = &spec
	}
	if t, err := time.Parse(time.RFC3339, row.createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}
