package checklist

// Status is the classification of one observation reading.
type Status string

const (
	// StatusNeutral means nothing to judge yet: empty or unparsable input.
	StatusNeutral Status = "neutral"
	// StatusAcceptable means the reading meets its criterion.
	StatusAcceptable Status = "acceptable"
	// StatusOutOfService means the station was off or the item not applicable.
	StatusOutOfService Status = "out-of-service"
	// StatusViolation means the reading fails its criterion.
	StatusViolation Status = "violation"
)

// Severity orders statuses for aggregation: the highest severity of a set of
// readings describes the set.
func (s Status) Severity() int {
	switch s {
	case StatusAcceptable:
		return 1
	case StatusOutOfService:
		return 2
	case StatusViolation:
		return 3
	default:
		return 0
	}
}

// Worst returns whichever of a and b has the higher severity.
func Worst(a, b Status) Status {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNeutral, StatusAcceptable, StatusOutOfService, StatusViolation:
		return true
	}
	return false
}
