package journal

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ObservationFilter narrows ListObservations. Empty fields match everything.
type ObservationFilter struct {
	SessionID   string
	StageID     int
	ParameterID string
	Operator    string
	Status      string
	// AppliedOnly hides updates that named an unknown cell.
	AppliedOnly bool
}

// Store provides append-only access to the journal tables.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the journal tables.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&ObservationEvent{}, &RequestEvent{})
}

// AppendObservation records an observation event.
func (s *Store) AppendObservation(ev *ObservationEvent) error {
	if err := s.db.Create(ev).Error; err != nil {
		return fmt.Errorf("append observation event: %w", err)
	}
	return nil
}

// AppendRequest records a request event.
func (s *Store) AppendRequest(ev *RequestEvent) error {
	if err := s.db.Create(ev).Error; err != nil {
		return fmt.Errorf("append request event: %w", err)
	}
	return nil
}

// GetObservation returns one observation event, or nil when it does not
// exist.
func (s *Store) GetObservation(id string) (*ObservationEvent, error) {
	var ev ObservationEvent
	err := s.db.Where("id = ?", id).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get observation event: %w", err)
	}
	return &ev, nil
}

// ListObservations returns observation events newest first.
// pageToken is an RFC3339Nano timestamp; events with created_at < pageToken
// are returned.
func (s *Store) ListObservations(filter ObservationFilter, pageSize int, pageToken string) ([]ObservationEvent, string, int, error) {
	pageSize = clampPageSize(pageSize)

	scope := func(q *gorm.DB) *gorm.DB {
		if filter.SessionID != "" {
			q = q.Where("session_id = ?", filter.SessionID)
		}
		if filter.StageID != 0 {
			q = q.Where("stage_id = ?", filter.StageID)
		}
		if filter.ParameterID != "" {
			q = q.Where("parameter_id = ?", filter.ParameterID)
		}
		if filter.Operator != "" {
			q = q.Where("operator = ?", filter.Operator)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.AppliedOnly {
			q = q.Where("applied = ?", true)
		}
		return q
	}

	var totalSize int64
	if err := s.db.Model(&ObservationEvent{}).Scopes(scope).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count observation events: %w", err)
	}

	query := s.db.Scopes(scope).Order("created_at DESC").Limit(pageSize + 1)
	query, err := afterToken(query, pageToken)
	if err != nil {
		return nil, "", 0, err
	}

	var records []ObservationEvent
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list observation events: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}
	return records, nextToken, int(totalSize), nil
}

// ListRequests returns request events newest first, optionally for one
// operator.
func (s *Store) ListRequests(operator string, pageSize int, pageToken string) ([]RequestEvent, string, int, error) {
	pageSize = clampPageSize(pageSize)

	base := s.db.Model(&RequestEvent{})
	query := s.db.Order("created_at DESC").Limit(pageSize + 1)
	if operator != "" {
		base = base.Where("operator = ?", operator)
		query = query.Where("operator = ?", operator)
	}

	var totalSize int64
	if err := base.Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count request events: %w", err)
	}

	query, err := afterToken(query, pageToken)
	if err != nil {
		return nil, "", 0, err
	}

	var records []RequestEvent
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list request events: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}
	return records, nextToken, int(totalSize), nil
}

// DeleteOlderThan deletes events of both kinds created before cutoff.
// Returns the number of deleted records.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("created_at < ?", cutoff).Delete(&ObservationEvent{})
		if res.Error != nil {
			return res.Error
		}
		deleted += res.RowsAffected
		res = tx.Where("created_at < ?", cutoff).Delete(&RequestEvent{})
		if res.Error != nil {
			return res.Error
		}
		deleted += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete old journal events: %w", err)
	}
	return deleted, nil
}

func clampPageSize(n int) int {
	if n <= 0 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

func afterToken(q *gorm.DB, pageToken string) (*gorm.DB, error) {
	if pageToken == "" {
		return q, nil
	}
	t, err := time.Parse(time.RFC3339Nano, pageToken)
	if err != nil {
		return nil, fmt.Errorf("invalid page token: %w", err)
	}
	return q.Where("created_at < ?", t), nil
}
