package operator

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const (
	// Header names the operator.
	Header = "X-Operator"
	// StationHeader names the workstation or tablet the request came from.
	StationHeader = "X-Station"
)

const maxNameLen = 64

var nameRe = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} ._'-]*$`)

// Resolve reads the operator from r according to mode.
func Resolve(r *http.Request, mode Mode) (Operator, error) {
	name := strings.TrimSpace(r.Header.Get(Header))
	station := strings.TrimSpace(r.Header.Get(StationHeader))
	if name == "" {
		if mode == ModeRequired {
			return Operator{}, fmt.Errorf("operator is required (set the %s header)", Header)
		}
		return Operator{Name: Anonymous, Station: station}, nil
	}
	if err := validateName(name); err != nil {
		return Operator{}, err
	}
	if station != "" {
		if err := validateName(station); err != nil {
			return Operator{}, fmt.Errorf("station: %w", err)
		}
	}
	return Operator{Name: name, Station: station}, nil
}

func validateName(s string) error {
	if len([]rune(s)) > maxNameLen {
		return fmt.Errorf("name %q exceeds maximum length of %d characters", s, maxNameLen)
	}
	if !nameRe.MatchString(s) {
		return fmt.Errorf("name %q is invalid: use letters, digits, spaces and . _ ' -", s)
	}
	return nil
}
