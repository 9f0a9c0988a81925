package journal

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, NewStore(db).AutoMigrate())
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(newTestDB(t))
}

func observation(session string, stage int, param, operator string, at time.Time) *ObservationEvent {
	return &ObservationEvent{
		ID:          uuid.New().String(),
		SessionID:   session,
		Line:        "II",
		StageID:     stage,
		ParameterID: param,
		TimeSlot:    "4 hrs",
		Previous:    Column(checklist.Scalar("")),
		NewValue:    Column(checklist.Scalar("42")),
		Applied:     true,
		Status:      string(checklist.StatusAcceptable),
		Operator:    operator,
		CreatedAt:   at,
	}
}

func TestStore_AppendAndGetObservation(t *testing.T) {
	store := newTestStore(t)

	ev := observation("s-1", 10, "10-3", "meera", time.Now())
	ev.NewValue = Column(checklist.Composite(map[string]string{"Sample-1": "OK", "Sample-2": "NG"}))
	ev.Samples = JSONAny{"Sample-1": "acceptable", "Sample-2": "violation"}
	require.NoError(t, store.AppendObservation(ev))

	got, err := store.GetObservation(ev.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "10-3", got.ParameterID)
	assert.True(t, got.NewValue.Reading().IsComposite())
	assert.Equal(t, "NG", got.NewValue.Reading().Sample("Sample-2"))
	assert.False(t, got.Previous.Reading().IsComposite())
	assert.Equal(t, "violation", got.Samples["Sample-2"])

	missing, err := store.GetObservation("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ListObservationsPagination(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendObservation(observation("s-1", 1, "1-1", "meera", base.Add(time.Duration(i)*time.Minute))))
	}

	page1, next, total, err := store.ListObservations(ObservationFilter{SessionID: "s-1"}, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	assert.NotEmpty(t, next)
	assert.True(t, page1[0].CreatedAt.After(page1[1].CreatedAt), "newest first")

	page2, next, _, err := store.ListObservations(ObservationFilter{SessionID: "s-1"}, 2, next)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.True(t, page2[0].CreatedAt.Before(page1[1].CreatedAt))

	page3, next, _, err := store.ListObservations(ObservationFilter{SessionID: "s-1"}, 2, next)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.Empty(t, next)

	_, _, _, err = store.ListObservations(ObservationFilter{}, 2, "yesterday")
	assert.Error(t, err)
}

func TestStore_ListObservationsFilter(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	require.NoError(t, store.AppendObservation(observation("s-1", 1, "1-1", "meera", now.Add(-3*time.Minute))))
	require.NoError(t, store.AppendObservation(observation("s-1", 3, "3-1", "kiran", now.Add(-2*time.Minute))))
	ignored := observation("s-2", 1, "1-99", "kiran", now.Add(-time.Minute))
	ignored.Applied = false
	ignored.Status = string(checklist.StatusNeutral)
	require.NoError(t, store.AppendObservation(ignored))

	tests := []struct {
		name   string
		filter ObservationFilter
		want   int
	}{
		{"all", ObservationFilter{}, 3},
		{"by session", ObservationFilter{SessionID: "s-1"}, 2},
		{"by stage", ObservationFilter{StageID: 1}, 2},
		{"by parameter", ObservationFilter{ParameterID: "3-1"}, 1},
		{"by operator", ObservationFilter{Operator: "kiran"}, 2},
		{"by status", ObservationFilter{Status: "neutral"}, 1},
		{"applied only", ObservationFilter{AppliedOnly: true}, 2},
		{"combined", ObservationFilter{Operator: "kiran", AppliedOnly: true}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records, _, total, err := store.ListObservations(tc.filter, 10, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, total)
			assert.Len(t, records, tc.want)
		})
	}
}

func TestStore_ListRequests(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	for i, op := range []string{"meera", "kiran", "meera"} {
		require.NoError(t, store.AppendRequest(&RequestEvent{
			ID:        uuid.New().String(),
			Operator:  op,
			Method:    "POST",
			Path:      "/api/v1/sessions",
			Action:    "create-session",
			Outcome:   "success",
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	records, _, total, err := store.ListRequests("meera", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, records, 2)

	_, _, total, err = store.ListRequests("", 0, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestStore_DeleteOlderThan(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	require.NoError(t, store.AppendObservation(observation("s-1", 1, "1-1", "meera", now.Add(-100*24*time.Hour))))
	require.NoError(t, store.AppendObservation(observation("s-1", 1, "1-1", "meera", now)))
	require.NoError(t, store.AppendRequest(&RequestEvent{
		ID: uuid.New().String(), Operator: "meera", Method: "POST", Path: "/x", Outcome: "success",
		CreatedAt: now.Add(-100 * 24 * time.Hour),
	}))

	deleted, err := store.DeleteOlderThan(now.Add(-90 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, _, total, err := store.ListObservations(ObservationFilter{}, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, defaultPageSize, clampPageSize(0))
	assert.Equal(t, defaultPageSize, clampPageSize(-3))
	assert.Equal(t, 7, clampPageSize(7))
	assert.Equal(t, maxPageSize, clampPageSize(1000))
}

func TestOpen(t *testing.T) {
	db, err := Open(context.Background(), "sqlite", ":memory:", nil)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&ObservationEvent{}))

	_, err = Open(context.Background(), "oracle", "dsn", nil)
	assert.Error(t, err)

	_, err = Open(context.Background(), "postgres", "", nil)
	assert.Error(t, err)
}
