// Package session carries the caller's role and station explicitly through
// every operation instead of reading it from ambient state.
package session

import (
	"errors"
	"strings"
)

// Role is what a caller is allowed to do.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	// RoleFactory is the mill's read-only view.
	RoleFactory Role = "factory"
)

// ErrUnknownRole is returned when a role string matches neither a fixed
// role nor a configured station.
var ErrUnknownRole = errors.New("unknown session role")

// Session identifies the caller of an operation. Operators are bound to a
// single station.
type Session struct {
	Role      Role   `json:"role"`
	StationID string `json:"station_id,omitempty"`
}

// Admin returns an administrator session.
func Admin() Session { return Session{Role: RoleAdmin} }

// Operator returns a session bound to stationID.
func Operator(stationID string) Session {
	return Session{Role: RoleOperator, StationID: stationID}
}

// IsAdmin reports whether the session has administrator rights.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// CanWrite reports whether the session may submit or change data.
func (s Session) CanWrite() bool {
	return s.Role == RoleAdmin || s.Role == RoleOperator
}

// CanAccessStation reports whether the session may act on stationID.
func (s Session) CanAccessStation(stationID string) bool {
	switch s.Role {
	case RoleAdmin, RoleFactory:
		return true
	case RoleOperator:
		return strings.EqualFold(s.StationID, stationID)
	}
	return false
}

// Parse resolves a raw role string. The operator role is spelled as the
// station name itself, matched case-insensitively against stations.
func Parse(raw string, stations []string) (Session, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return Session{}, ErrUnknownRole
	case string(RoleAdmin):
		return Admin(), nil
	case string(RoleFactory), "pabrik":
		return Session{Role: RoleFactory}, nil
	}
	for _, st := range stations {
		if strings.EqualFold(st, raw) {
			return Operator(st), nil
		}
	}
	return Session{}, ErrUnknownRole
}
