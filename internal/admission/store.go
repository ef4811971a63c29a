package admission

import "sync"

// EnqueueResult reports what Enqueue did with a request.
type EnqueueResult int

const (
	// Accepted means the request was appended to the pending queue.
	Accepted EnqueueResult = iota
	// Duplicate means the same user already has a pending request in the chat.
	Duplicate
	// AlreadyApproved means the user was approved recently; the event is a
	// platform redelivery and must not re-enter the queue.
	AlreadyApproved
)

// recentApprovedCap bounds the per-chat redelivery dedup set.
const recentApprovedCap = 256

// Store holds per-chat admission state in memory. All operations are
// atomic per chat; operations on different chats never contend.
// Chat states are never deleted, they live for the process lifetime.
type Store struct {
	mu    sync.RWMutex
	chats map[int64]*chatState
}

type chatState struct {
	mu         sync.Mutex
	autoAccept bool
	pending    []JoinRequest
	// recently approved user IDs, FIFO-evicted at recentApprovedCap
	approved      map[int64]struct{}
	approvedOrder []int64
}

// NewStore creates an empty admission store.
func NewStore() *Store {
	return &Store{chats: make(map[int64]*chatState)}
}

// chat returns the state for chatID, creating it on first use.
func (s *Store) chat(chatID int64) *chatState {
	s.mu.RLock()
	cs, ok := s.chats[chatID]
	s.mu.RUnlock()
	if ok {
		return cs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok = s.chats[chatID]; ok {
		return cs
	}
	cs = &chatState{approved: make(map[int64]struct{})}
	s.chats[chatID] = cs
	return cs
}

// Enqueue appends req to the chat's pending queue unless the user is
// already pending or was recently approved.
func (s *Store) Enqueue(chatID int64, req JoinRequest) EnqueueResult {
	cs := s.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.approved[req.UserID]; ok {
		return AlreadyApproved
	}
	for _, p := range cs.pending {
		if p.UserID == req.UserID {
			return Duplicate
		}
	}
	cs.pending = append(cs.pending, req)
	return Accepted
}

// IsAutoAccept reports whether auto-accept is enabled for the chat.
func (s *Store) IsAutoAccept(chatID int64) bool {
	cs := s.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.autoAccept
}

// SetAutoAccept enables auto-accept for the chat. Idempotent; there is
// no disable signal.
func (s *Store) SetAutoAccept(chatID int64) {
	cs := s.chat(chatID)
	cs.mu.Lock()
	cs.autoAccept = true
	cs.mu.Unlock()
}

// DrainPending atomically removes and returns the chat's entire pending
// queue in arrival order. Callers process approvals without holding the
// chat lock. A concurrent Enqueue lands either fully before the drain
// (included) or fully after it (left pending), never in between.
func (s *Store) DrainPending(chatID int64) []JoinRequest {
	cs := s.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	drained := cs.pending
	cs.pending = nil
	return drained
}

// Requeue puts requests back at the head of the pending queue, keeping
// their original arrival order ahead of anything enqueued since the
// drain. Entries already pending or approved in the meantime are dropped.
func (s *Store) Requeue(chatID int64, reqs []JoinRequest) {
	if len(reqs) == 0 {
		return
	}
	cs := s.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	seen := make(map[int64]struct{}, len(cs.pending))
	for _, p := range cs.pending {
		seen[p.UserID] = struct{}{}
	}

	restored := make([]JoinRequest, 0, len(reqs)+len(cs.pending))
	for _, r := range reqs {
		if _, dup := seen[r.UserID]; dup {
			continue
		}
		if _, ok := cs.approved[r.UserID]; ok {
			continue
		}
		restored = append(restored, r)
		seen[r.UserID] = struct{}{}
	}
	cs.pending = append(restored, cs.pending...)
}

// Remove deletes the pending request for userID, reporting whether it
// was present.
func (s *Store) Remove(chatID, userID int64) bool {
	cs := s.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for i, p := range cs.pending {
		if p.UserID == userID {
			cs.pending = append(cs.pending[:i], cs.pending[i+1:]...)
			return true
		}
	}
	return false
}

// MarkApproved records userID in the chat's recently-approved set so a
// redelivered join-request event is not treated as a new request.
func (s *Store) MarkApproved(chatID, userID int64) {
	cs := s.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.approved[userID]; ok {
		return
	}
	cs.approved[userID] = struct{}{}
	cs.approvedOrder = append(cs.approvedOrder, userID)
	if len(cs.approvedOrder) > recentApprovedCap {
		oldest := cs.approvedOrder[0]
		cs.approvedOrder = cs.approvedOrder[1:]
		delete(cs.approved, oldest)
	}
}

// PendingCount returns the number of pending requests for the chat.
func (s *Store) PendingCount(chatID int64) int {
	cs := s.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.pending)
}
