package checklist

import "slices"

// Update addresses one observation cell and carries its new value.
type Update struct {
	StageID     int    `json:"stageId"`
	ParameterID string `json:"parameterId"`
	TimeSlot    string `json:"timeSlot"`
	Value       Value  `json:"value"`
}

// ApplyUpdate replaces a single observation value. See Apply.
func ApplyUpdate(rec AuditRecord, stageID int, parameterID, timeSlot string, v Value) AuditRecord {
	out, _ := Apply(rec, Update{StageID: stageID, ParameterID: parameterID, TimeSlot: timeSlot, Value: v})
	return out
}

// Apply returns rec with the addressed cell set to u.Value. Unknown stage,
// parameter or slot ids leave rec unchanged and report false. Only the slices
// on the path to the cell are copied; rec itself is never mutated. The value's
// shape is not checked.
func Apply(rec AuditRecord, u Update) (AuditRecord, bool) {
	si := slices.IndexFunc(rec.Stages, func(s Stage) bool { return s.ID == u.StageID })
	if si < 0 {
		return rec, false
	}
	params := rec.Stages[si].Parameters
	pi := slices.IndexFunc(params, func(p Parameter) bool { return p.ID == u.ParameterID })
	if pi < 0 {
		return rec, false
	}
	obs := params[pi].Observations
	oi := slices.IndexFunc(obs, func(o Observation) bool { return o.TimeSlot == u.TimeSlot })
	if oi < 0 {
		return rec, false
	}

	obs = slices.Clone(obs)
	obs[oi].Value = u.Value
	params = slices.Clone(params)
	params[pi].Observations = obs
	stages := slices.Clone(rec.Stages)
	stages[si].Parameters = params
	rec.Stages = stages
	return rec, true
}
