package domain

import "github.com/google/uuid"

// Session is the read-only identity every repository call runs under
type Session struct {
	ServerID    string
	BaseURL     string
	UserID      uuid.UUID
	DeviceID    string
	DeviceName  string
	AccessToken string
}

// SessionSource yields the current session. It is consulted once per call.
type SessionSource interface {
	Session() (Session, error)
}

// StaticSession is a SessionSource that always returns the same session
type StaticSession Session

// Session implements SessionSource
func (s StaticSession) Session() (Session, error) {
	if s.UserID == uuid.Nil {
		return Session{}, ErrAuthFailed
	}
	return Session(s), nil
}
