package admission

import "time"

// JoinRequest is an immutable record of one user asking to join one chat.
type JoinRequest struct {
	UserID     int64
	FirstName  string
	Username   string
	ChatID     int64
	ReceivedAt time.Time
}

// DisplayName returns the best human-readable name for the requester.
func (r JoinRequest) DisplayName() string {
	if r.FirstName != "" {
		return r.FirstName
	}
	if r.Username != "" {
		return "@" + r.Username
	}
	return "there"
}
