// Package journal keeps an append-only log of observation updates and of
// the requests that changed sessions. It records events, not audit records.
package journal

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

// JSONAny is a map[string]any stored as JSON text.
type JSONAny map[string]any

// Scan implements the sql.Scanner interface for JSONAny.
func (m *JSONAny) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONAny: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONAny.
func (m JSONAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ValueColumn stores a checklist.Value in its JSON form: a string for a
// scalar reading, an object for a composite.
type ValueColumn checklist.Value

// Column wraps v for storage.
func Column(v checklist.Value) ValueColumn { return ValueColumn(v) }

// Reading returns the stored value.
func (c ValueColumn) Reading() checklist.Value { return checklist.Value(c) }

// Scan implements the sql.Scanner interface for ValueColumn.
func (c *ValueColumn) Scan(value any) error {
	var v checklist.Value
	switch raw := value.(type) {
	case nil:
		v = checklist.Scalar("")
	case string:
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return err
		}
	case []byte:
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported type for ValueColumn: %T", value)
	}
	*c = ValueColumn(v)
	return nil
}

// Value implements the driver.Valuer interface for ValueColumn.
func (c ValueColumn) Value() (driver.Value, error) {
	b, err := json.Marshal(checklist.Value(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ObservationEvent is one update sent to a session, applied or not.
type ObservationEvent struct {
	ID          string      `gorm:"primaryKey;column:id;type:varchar(36)"`
	SessionID   string      `gorm:"column:session_id;type:varchar(36);index:idx_obs_session_time,priority:1;not null"`
	Line        string      `gorm:"column:line;not null"`
	StageID     int         `gorm:"column:stage_id;index:idx_obs_cell,priority:1"`
	ParameterID string      `gorm:"column:parameter_id;index:idx_obs_cell,priority:2"`
	TimeSlot    string      `gorm:"column:time_slot"`
	Previous    ValueColumn `gorm:"column:previous;type:text"`
	NewValue    ValueColumn `gorm:"column:new_value;type:text"`
	Applied     bool        `gorm:"column:applied;not null"`
	Status      string      `gorm:"column:status;index"`
	Samples     JSONAny     `gorm:"column:samples;type:text"`
	Operator    string      `gorm:"column:operator;index:idx_obs_operator_time,priority:1;not null"`
	Station     string      `gorm:"column:station"`
	RequestID   string      `gorm:"column:request_id;index"`
	CreatedAt   time.Time   `gorm:"column:created_at;index:idx_obs_session_time,priority:2;index:idx_obs_operator_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (ObservationEvent) TableName() string { return "observation_events" }

// RequestEvent is one state-changing API request.
type RequestEvent struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	RequestID  string    `gorm:"column:request_id;index"`
	Operator   string    `gorm:"column:operator;index:idx_req_operator_time,priority:1;not null"`
	Station    string    `gorm:"column:station"`
	Method     string    `gorm:"column:method;not null"`
	Path       string    `gorm:"column:path;not null"`
	SessionID  string    `gorm:"column:session_id;index"`
	Action     string    `gorm:"column:action"`
	StatusCode int       `gorm:"column:status_code"`
	Outcome    string    `gorm:"column:outcome;not null"`
	DurationMS int64     `gorm:"column:duration_ms"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_req_operator_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (RequestEvent) TableName() string { return "request_events" }
