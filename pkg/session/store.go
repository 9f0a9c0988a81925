// Package session hosts audit records in memory while a shift fills them in.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solarqc/ipqc-audit/pkg/catalog"
	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrLimitReached is returned when MaxSessions sessions are open.
	ErrLimitReached = errors.New("session limit reached")

	// ErrUnknownLine is returned when a session is created for a line the
	// catalog does not declare.
	ErrUnknownLine = errors.New("unknown production line")

	// ErrShapeMismatch is returned when a composite value is sent to a
	// scalar slot or the other way round.
	ErrShapeMismatch = errors.New("value shape does not match the slot")
)

// Session is a snapshot of one audit in progress.
type Session struct {
	ID        string                `json:"id"`
	Line      string                `json:"line"`
	Version   string                `json:"catalogVersion"`
	Record    checklist.AuditRecord `json:"record"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Updates   int                   `json:"updates"`
}

// Summary is the list view of a session.
type Summary struct {
	ID                string    `json:"id"`
	Line              string    `json:"line"`
	Date              string    `json:"date,omitempty"`
	Shift             string    `json:"shift,omitempty"`
	ProductionOrderNo string    `json:"productionOrderNo,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	Updates           int       `json:"updates"`
}

// HeaderPatch is a partial header update. Nil fields are left alone.
type HeaderPatch struct {
	LineNumber             *string `json:"lineNumber,omitempty"`
	Date                   *string `json:"date,omitempty"`
	Shift                  *string `json:"shift,omitempty"`
	ProductionOrderNo      *string `json:"productionOrderNo,omitempty"`
	ModuleType             *string `json:"moduleType,omitempty"`
	CustomerSpecAvailable  *bool   `json:"customerSpecAvailable,omitempty"`
	SpecificationSignedOff *bool   `json:"specificationSignedOff,omitempty"`
}

func (p HeaderPatch) apply(h checklist.Header) checklist.Header {
	if p.LineNumber != nil {
		h.LineNumber = *p.LineNumber
	}
	if p.Date != nil {
		h.Date = *p.Date
	}
	if p.Shift != nil {
		h.Shift = *p.Shift
	}
	if p.ProductionOrderNo != nil {
		h.ProductionOrderNo = *p.ProductionOrderNo
	}
	if p.ModuleType != nil {
		h.ModuleType = *p.ModuleType
	}
	if p.CustomerSpecAvailable != nil {
		h.CustomerSpecAvailable = *p.CustomerSpecAvailable
	}
	if p.SpecificationSignedOff != nil {
		h.SpecificationSignedOff = *p.SpecificationSignedOff
	}
	return h
}

// ApplyResult reports what an observation update did.
type ApplyResult struct {
	// Applied is false when the update named an unknown cell and the record
	// was left unchanged.
	Applied bool                        `json:"applied"`
	Status  checklist.Status            `json:"status"`
	Samples map[string]checklist.Status `json:"samples,omitempty"`
}

// Event is passed to the Observer after every Apply.
type Event struct {
	SessionID string
	Line      string
	Update    checklist.Update
	Previous  checklist.Value
	Result    ApplyResult
	At        time.Time
}

// Observer is notified of every applied or ignored update. It runs after
// the session lock is released.
type Observer func(ctx context.Context, ev Event)

type entry struct {
	mu        sync.Mutex
	line      string
	template  *catalog.Template
	record    checklist.AuditRecord
	createdAt time.Time
	updatedAt time.Time
	updates   int
}

func (e *entry) snapshot(id string) Session {
	return Session{
		ID:        id,
		Line:      e.line,
		Version:   e.template.Version(),
		Record:    e.record,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
		Updates:   e.updates,
	}
}

// Store keeps sessions in memory. Each session has its own lock, so
// different audits never contend.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	catalogs *catalog.Holder
	cfg      *SessionConfig
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers the update observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store that builds new sessions from the catalog
// currently held by catalogs.
func NewStore(catalogs *catalog.Holder, cfg *SessionConfig, logger *slog.Logger, opts ...Option) *Store {
	if cfg == nil {
		cfg = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		sessions: make(map[string]*entry),
		catalogs: catalogs,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create opens a session for line with an empty record.
func (s *Store) Create(line string, header checklist.Header) (Session, error) {
	tmpl, err := s.catalogs.Load().Template(line)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownLine) {
			return Session{}, fmt.Errorf("%w: %q", ErrUnknownLine, line)
		}
		return Session{}, err
	}

	now := s.now()
	e := &entry{
		line:      line,
		template:  tmpl,
		record:    tmpl.NewRecord(header),
		createdAt: now,
		updatedAt: now,
	}
	id := uuid.New().String()

	s.mu.Lock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return Session{}, ErrLimitReached
	}
	s.sessions[id] = e
	s.mu.Unlock()

	s.logger.Info("session created", "session", id, "line", line, "catalogVersion", tmpl.Version())
	return e.snapshot(id), nil
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return e, nil
}

// Get returns a snapshot of the session.
func (s *Store) Get(id string) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(id), nil
}

// List returns summaries of every session, oldest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	entries := make([]*entry, 0, len(s.sessions))
	for id, e := range s.sessions {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		h := e.record.Header
		out = append(out, Summary{
			ID:                ids[i],
			Line:              e.line,
			Date:              h.Date,
			Shift:             h.Shift,
			ProductionOrderNo: h.ProductionOrderNo,
			CreatedAt:         e.createdAt,
			UpdatedAt:         e.updatedAt,
			Updates:           e.updates,
		})
		e.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// UpdateHeader applies a partial header update.
func (s *Store) UpdateHeader(id string, patch HeaderPatch) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record.Header = patch.apply(e.record.Header)
	e.updatedAt = s.now()
	return e.snapshot(id), nil
}

// Apply writes one observation through the reducer. An update naming an
// unknown stage, parameter or slot leaves the record untouched and reports
// Applied false. A value whose shape does not fit the slot is rejected with
// ErrShapeMismatch.
func (s *Store) Apply(ctx context.Context, id string, u checklist.Update) (ApplyResult, error) {
	if err := ctx.Err(); err != nil {
		return ApplyResult{}, err
	}
	e, err := s.lookup(id)
	if err != nil {
		return ApplyResult{}, err
	}

	e.mu.Lock()
	previous, exists := cell(e.record, u)
	d := e.template.Dispatcher()
	if exists {
		if b, ok := d.Lookup(u.StageID, u.ParameterID, u.TimeSlot); ok && !b.Accepts(u.Value) {
			e.mu.Unlock()
			return ApplyResult{}, fmt.Errorf("%w: stage %d parameter %s slot %q expects a %s value",
				ErrShapeMismatch, u.StageID, u.ParameterID, u.TimeSlot, shapeName(b))
		}
	}
	next, applied := checklist.Apply(e.record, u)
	result := ApplyResult{Applied: applied, Status: checklist.StatusNeutral}
	if applied {
		e.record = next
		e.updatedAt = s.now()
		e.updates++
		res, _ := d.Classify(u.StageID, u.ParameterID, u.TimeSlot, u.Value, checklist.Context{Today: s.now()})
		result.Status = res.Status
		result.Samples = res.Samples
	}
	line := e.line
	e.mu.Unlock()

	if !applied {
		s.logger.Debug("update ignored, no such cell",
			"session", id, "stage", u.StageID, "parameter", u.ParameterID, "timeSlot", u.TimeSlot)
	}
	if s.observer != nil {
		s.observer(ctx, Event{
			SessionID: id,
			Line:      line,
			Update:    u,
			Previous:  previous,
			Result:    result,
			At:        s.now(),
		})
	}
	return result, nil
}

// Statuses classifies every cell of the session.
func (s *Store) Statuses(id string, cx checklist.Context) ([]checklist.StageReport, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	rec, d := e.record, e.template.Dispatcher()
	e.mu.Unlock()
	if cx.Today.IsZero() {
		cx.Today = s.now()
	}
	return d.Report(rec, cx), nil
}

// Delete discards a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep discards sessions idle for longer than the configured TTL and
// returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.cfg.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := e.updatedAt.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func cell(rec checklist.AuditRecord, u checklist.Update) (checklist.Value, bool) {
	st, ok := rec.Stage(u.StageID)
	if !ok {
		return checklist.Value{}, false
	}
	p, ok := st.Parameter(u.ParameterID)
	if !ok {
		return checklist.Value{}, false
	}
	return p.Observation(u.TimeSlot)
}

func shapeName(b checklist.Binding) string {
	if b.Widget == checklist.WidgetGrid {
		return "composite"
	}
	return "scalar"
}
