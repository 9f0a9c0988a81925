package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarqc/ipqc-audit/pkg/catalog"
	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, cfg *SessionConfig, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewStore(catalog.NewHolder(c), cfg, nil, opts...), clock
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t, nil)

	sess, err := store.Create("II", checklist.Header{Shift: "B"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "II", sess.Line)
	assert.Equal(t, "II", sess.Record.Header.LineNumber)
	assert.Len(t, sess.Record.Stages, 30)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "B", got.Record.Header.Shift)
}

func TestCreateUnknownLine(t *testing.T) {
	store, _ := newTestStore(t, nil)
	_, err := store.Create("VII", checklist.Header{})
	assert.ErrorIs(t, err, ErrUnknownLine)
}

func TestCreateLimit(t *testing.T) {
	store, _ := newTestStore(t, &SessionConfig{MaxSessions: 1})
	_, err := store.Create("I", checklist.Header{})
	require.NoError(t, err)
	_, err = store.Create("I", checklist.Header{})
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestGetUnknown(t *testing.T) {
	store, _ := newTestStore(t, nil)
	_, err := store.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, store.Delete("missing"), ErrNotFound)
}

func TestApply(t *testing.T) {
	store, clock := newTestStore(t, nil)
	sess, err := store.Create("II", checklist.Header{})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	res, err := store.Apply(context.Background(), sess.ID, checklist.Update{
		StageID: 1, ParameterID: "1-1", TimeSlot: "4 hrs", Value: checklist.Scalar("72"),
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, checklist.StatusViolation, res.Status)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	st, _ := got.Record.Stage(1)
	p, _ := st.Parameter("1-1")
	v, ok := p.Observation("4 hrs")
	require.True(t, ok)
	assert.Equal(t, "72", v.Text())
	assert.Equal(t, 1, got.Updates)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	// The snapshot handed out earlier is unaffected.
	st, _ = sess.Record.Stage(1)
	p, _ = st.Parameter("1-1")
	v, _ = p.Observation("4 hrs")
	assert.True(t, v.IsEmpty())
}

func TestApplyUnknownCellIsNoop(t *testing.T) {
	store, _ := newTestStore(t, nil)
	sess, err := store.Create("II", checklist.Header{})
	require.NoError(t, err)

	updates := []checklist.Update{
		{StageID: 99, ParameterID: "1-1", TimeSlot: "4 hrs", Value: checklist.Scalar("1")},
		{StageID: 1, ParameterID: "1-99", TimeSlot: "4 hrs", Value: checklist.Scalar("1")},
		{StageID: 1, ParameterID: "1-1", TimeSlot: "12 hrs", Value: checklist.Scalar("1")},
		{StageID: 16, ParameterID: "16-1", TimeSlot: "", Value: checklist.Scalar("1")},
	}
	for _, u := range updates {
		res, err := store.Apply(context.Background(), sess.ID, u)
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, checklist.StatusNeutral, res.Status)
	}

	got, _ := store.Get(sess.ID)
	assert.Equal(t, 0, got.Updates)
	assert.Equal(t, sess.Record, got.Record)
}

func TestApplyShapeMismatch(t *testing.T) {
	store, _ := newTestStore(t, nil)
	sess, err := store.Create("II", checklist.Header{})
	require.NoError(t, err)

	_, err = store.Apply(context.Background(), sess.ID, checklist.Update{
		StageID: 1, ParameterID: "1-1", TimeSlot: "4 hrs",
		Value: checklist.Composite(map[string]string{"Sample-1": "50"}),
	})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = store.Apply(context.Background(), sess.ID, checklist.Update{
		StageID: 10, ParameterID: "10-3", TimeSlot: "4 hours", Value: checklist.Scalar("OK"),
	})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestApplyComposite(t *testing.T) {
	store, _ := newTestStore(t, nil)
	sess, err := store.Create("II", checklist.Header{})
	require.NoError(t, err)

	res, err := store.Apply(context.Background(), sess.ID, checklist.Update{
		StageID: 10, ParameterID: "10-3", TimeSlot: "4 hours",
		Value: checklist.Composite(map[string]string{"Sample-1": "OK", "Sample-2": "OFF"}),
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, checklist.StatusOutOfService, res.Status)
	assert.Equal(t, checklist.StatusAcceptable, res.Samples["Sample-1"])
	assert.Equal(t, checklist.StatusNeutral, res.Samples["Sample-6"])
}

func TestApplyObserver(t *testing.T) {
	var events []Event
	store, _ := newTestStore(t, nil, WithObserver(func(_ context.Context, ev Event) {
		events = append(events, ev)
	}))
	sess, err := store.Create("I", checklist.Header{})
	require.NoError(t, err)

	u := checklist.Update{StageID: 1, ParameterID: "1-4", TimeSlot: "", Value: checklist.Scalar("9")}
	_, err = store.Apply(context.Background(), sess.ID, u)
	require.NoError(t, err)
	u.Value = checklist.Scalar("5")
	_, err = store.Apply(context.Background(), sess.ID, u)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "I", events[0].Line)
	assert.Equal(t, checklist.StatusViolation, events[0].Result.Status)
	assert.True(t, events[0].Previous.IsEmpty())
	assert.Equal(t, "9", events[1].Previous.Text())
	assert.Equal(t, checklist.StatusAcceptable, events[1].Result.Status)
}

func TestApplyCancelledContext(t *testing.T) {
	store, _ := newTestStore(t, nil)
	sess, err := store.Create("I", checklist.Header{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Apply(ctx, sess.ID, checklist.Update{StageID: 1, ParameterID: "1-4", Value: checklist.Scalar("3")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateHeader(t *testing.T) {
	store, _ := newTestStore(t, nil)
	sess, err := store.Create("II", checklist.Header{Shift: "A", ModuleType: "M10"})
	require.NoError(t, err)

	po := "PO-7781"
	signed := true
	got, err := store.UpdateHeader(sess.ID, HeaderPatch{ProductionOrderNo: &po, SpecificationSignedOff: &signed})
	require.NoError(t, err)
	assert.Equal(t, "PO-7781", got.Record.Header.ProductionOrderNo)
	assert.True(t, got.Record.Header.SpecificationSignedOff)
	assert.Equal(t, "A", got.Record.Header.Shift)
	assert.Equal(t, "M10", got.Record.Header.ModuleType)
}

func TestStatuses(t *testing.T) {
	store, _ := newTestStore(t, nil)
	sess, err := store.Create("II", checklist.Header{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Apply(ctx, sess.ID, checklist.Update{StageID: 1, ParameterID: "1-1", TimeSlot: "4 hrs", Value: checklist.Scalar("55")})
	require.NoError(t, err)
	_, err = store.Apply(ctx, sess.ID, checklist.Update{StageID: 1, ParameterID: "1-2", TimeSlot: "4 hrs", Value: checklist.Scalar("40")})
	require.NoError(t, err)

	reports, err := store.Statuses(sess.ID, checklist.Context{})
	require.NoError(t, err)
	require.Len(t, reports, 30)
	first := reports[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, checklist.StatusViolation, first.Worst)
	assert.Equal(t, 1, first.Counts[checklist.StatusAcceptable])
	assert.Equal(t, 1, first.Counts[checklist.StatusViolation])
	assert.Equal(t, 3, first.Counts[checklist.StatusNeutral])
}

func TestListAndSweep(t *testing.T) {
	store, clock := newTestStore(t, &SessionConfig{IdleTTL: time.Hour})

	old, err := store.Create("I", checklist.Header{Shift: "A"})
	require.NoError(t, err)
	clock.Advance(50 * time.Minute)
	fresh, err := store.Create("II", checklist.Header{Shift: "B"})
	require.NoError(t, err)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, old.ID, list[0].ID)
	assert.Equal(t, fresh.ID, list[1].ID)
	assert.Equal(t, "B", list[1].Shift)

	clock.Advance(20 * time.Minute)
	assert.Equal(t, 1, store.Sweep(clock.Now()))
	assert.Equal(t, 1, store.Len())
	_, err = store.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	noTTL, _ := newTestStore(t, &SessionConfig{})
	_, err = noTTL.Create("I", checklist.Header{})
	require.NoError(t, err)
	assert.Equal(t, 0, noTTL.Sweep(time.Now().Add(1000*time.Hour)))
}

func TestSessionKeepsTemplateAcrossReload(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	holder := catalog.NewHolder(c)
	store := NewStore(holder, nil, nil)

	sess, err := store.Create("II", checklist.Header{})
	require.NoError(t, err)

	replacement, err := catalog.Parse([]byte(`
lines:
  - name: II
    variant: standard
    lanes: [Line-3, Line-4]
stages:
  - id: 1
    name: "Only"
    parameters:
      - id: "1-1"
        label: "Humidity"
        criteria: ""
        inspection: "Aesthetics"
        slots: ["4 hrs"]
        rule: 'range .. 10'
`))
	require.NoError(t, err)
	holder.Store(replacement)

	res, err := store.Apply(context.Background(), sess.ID, checklist.Update{
		StageID: 1, ParameterID: "1-1", TimeSlot: "8 hrs", Value: checklist.Scalar("50"),
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, checklist.StatusAcceptable, res.Status)

	next, err := store.Create("II", checklist.Header{})
	require.NoError(t, err)
	assert.Len(t, next.Record.Stages, 1)
	assert.NotEqual(t, sess.Record.Stages[0].Name, next.Record.Stages[0].Name)
}
