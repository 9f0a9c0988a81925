package journal

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/solarqc/ipqc-audit/pkg/operator"
	"github.com/solarqc/ipqc-audit/pkg/session"
)

// Observer returns a session.Observer that writes every update to store.
// Write failures are logged and never fail the update.
func Observer(store *Store, logger *slog.Logger) session.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, ev session.Event) {
		op, _ := operator.FromContext(ctx)
		name := op.Name
		if name == "" {
			name = operator.Anonymous
		}
		var samples JSONAny
		if len(ev.Result.Samples) > 0 {
			samples = make(JSONAny, len(ev.Result.Samples))
			for label, st := range ev.Result.Samples {
				samples[label] = string(st)
			}
		}
		rec := &ObservationEvent{
			ID:          uuid.New().String(),
			SessionID:   ev.SessionID,
			Line:        ev.Line,
			StageID:     ev.Update.StageID,
			ParameterID: ev.Update.ParameterID,
			TimeSlot:    ev.Update.TimeSlot,
			Previous:    Column(ev.Previous),
			NewValue:    Column(ev.Update.Value),
			Applied:     ev.Result.Applied,
			Status:      string(ev.Result.Status),
			Samples:     samples,
			Operator:    name,
			Station:     op.Station,
			RequestID:   middleware.GetReqID(ctx),
			CreatedAt:   ev.At,
		}
		if err := store.AppendObservation(rec); err != nil {
			logger.Error("failed to write observation event", "error", err, "session", ev.SessionID)
		}
	}
}
