package journal

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarqc/ipqc-audit/pkg/catalog"
	"github.com/solarqc/ipqc-audit/pkg/checklist"
	"github.com/solarqc/ipqc-audit/pkg/operator"
	"github.com/solarqc/ipqc-audit/pkg/session"
)

func TestObserverRecordsSessionUpdates(t *testing.T) {
	store := newTestStore(t)
	c, err := catalog.Default()
	require.NoError(t, err)
	sessions := session.NewStore(catalog.NewHolder(c), nil, nil, session.WithObserver(Observer(store, nil)))

	sess, err := sessions.Create("II", checklist.Header{})
	require.NoError(t, err)

	ctx := operator.WithOperator(context.Background(), operator.Operator{Name: "meera", Station: "Tab-02"})
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-17")

	_, err = sessions.Apply(ctx, sess.ID, checklist.Update{
		StageID: 10, ParameterID: "10-3", TimeSlot: "4 hours",
		Value: checklist.Composite(map[string]string{"Sample-1": "NG"}),
	})
	require.NoError(t, err)
	_, err = sessions.Apply(context.Background(), sess.ID, checklist.Update{
		StageID: 10, ParameterID: "10-99", TimeSlot: "4 hours", Value: checklist.Scalar("x"),
	})
	require.NoError(t, err)

	records, _, total, err := store.ListObservations(ObservationFilter{SessionID: sess.ID}, 10, "")
	require.NoError(t, err)
	require.Equal(t, 2, total)

	byParam := map[string]ObservationEvent{}
	for _, r := range records {
		byParam[r.ParameterID] = r
	}

	applied := byParam["10-3"]
	assert.True(t, applied.Applied)
	assert.Equal(t, "violation", applied.Status)
	assert.Equal(t, "meera", applied.Operator)
	assert.Equal(t, "Tab-02", applied.Station)
	assert.Equal(t, "req-17", applied.RequestID)
	assert.Equal(t, "II", applied.Line)
	assert.Equal(t, "violation", applied.Samples["Sample-1"])
	assert.Equal(t, "NG", applied.NewValue.Reading().Sample("Sample-1"))
	assert.True(t, applied.Previous.Reading().IsComposite())

	ignored := byParam["10-99"]
	assert.False(t, ignored.Applied)
	assert.Equal(t, operator.Anonymous, ignored.Operator)
	assert.Equal(t, "neutral", ignored.Status)
}

func TestRetentionWorkerCleanup(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	require.NoError(t, store.AppendObservation(observation("s-1", 1, "1-1", "meera", now.Add(-10*24*time.Hour))))
	require.NoError(t, store.AppendObservation(observation("s-1", 1, "1-1", "meera", now.Add(-time.Hour))))

	w := NewRetentionWorker(store, 7, nil)
	w.cleanup(now)

	_, _, total, err := store.ListObservations(ObservationFilter{}, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRetentionWorkerDisabledReturns(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewRetentionWorker(nil, 30, nil).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker should return immediately")
	}
}
