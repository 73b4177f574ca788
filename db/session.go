package db

import (
	"time"

	"github.com/google/uuid"
)

// UnknownDevice is the fingerprint used when the client sends no User-Agent.
const UnknownDevice = "Unknown device"

// DeviceFingerprint maps a raw User-Agent to the session key.
// Matching is exact string equality on the result.
func DeviceFingerprint(userAgent string) string {
	if userAgent == "" {
		return UnknownDevice
	}
	return userAgent
}

// UpsertSession refreshes the session of device or appends a new one.
// The returned session is a copy of the stored entry. Drivers run it inside
// UserRepository.UpsertSession.
func (u *User) UpsertSession(device, ip string, now time.Time) Session {
	now = now.UTC()
	for i := range u.Sessions {
		if u.Sessions[i].DeviceInfo == device {
			u.Sessions[i].LastActive = now
			u.Sessions[i].IPAddress = ip
			return u.Sessions[i]
		}
	}
	s := Session{
		ID:         uuid.NewString(),
		DeviceInfo: device,
		IPAddress:  ip,
		LastActive: now,
	}
	u.Sessions = append(u.Sessions, s)
	return s
}

// RemoveSession drops every session of device and reports whether any was removed.
func (u *User) RemoveSession(device string) bool {
	return u.removeSessions(func(s Session) bool { return s.DeviceInfo == device })
}

// RemoveSessionByID drops the session with id and reports whether it existed.
func (u *User) RemoveSessionByID(id string) bool {
	return u.removeSessions(func(s Session) bool { return s.ID == id })
}

func (u *User) removeSessions(match func(Session) bool) bool {
	kept := u.Sessions[:0]
	removed := false
	for _, s := range u.Sessions {
		if match(s) {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	u.Sessions = kept
	return removed
}
