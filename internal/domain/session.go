package domain

// GuestOwner is the owner id of every guest-mode entry.
const GuestOwner = "guest"

// Session identifies who is driving the state manager. Exactly one of
// UserID and GuestID is normally set; UserID wins when both are.
type Session struct {
	UserID  string
	GuestID string
	Token   string
}

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// OwnerID returns the owner id stamped on entries created by this session.
func (s Session) OwnerID() string {
	if s.Authenticated() {
		return s.UserID
	}
	return GuestOwner
}

// Key returns the registry key for the session: "user:<id>" or "guest:<id>".
func (s Session) Key() string {
	if s.Authenticated() {
		return "user:" + s.UserID
	}
	return "guest:" + s.GuestID
}
