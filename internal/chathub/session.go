package chathub

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

// Message is one entry of a session's log.
type Message struct {
	ID       string
	Seq      uint64
	SenderID string
	Text     string
	SentAt   time.Time
}

// newMessageID returns a lexically sortable id for a log entry.
func newMessageID() string {
	return ulid.Make().String()
}

// Session is a live or recently ended pairing of two users.
//
// status and the message log are guarded by stateMu, which is never held across I/O.
// appendMu serializes senders so sequence numbers follow persistence order.
type Session struct {
	ID              string
	Participants    [2]string
	Type            Pool
	CommonInterests []string
	StartedAt       time.Time

	// announced is set once both participants got the matched event. Engine lock.
	announced bool
	// origin keeps the queue entries the session was built from for rollback.
	origin [2]QueueEntry

	appendMu sync.Mutex
	stateMu  sync.Mutex
	status   SessionStatus
	endedAt  time.Time
	reason   string
	nextSeq  uint64
	messages []Message
}

func newSession(id string, p Pairing, startedAt time.Time) *Session {
	return &Session{
		ID:              id,
		Participants:    [2]string{p.First.UserID(), p.Second.UserID()},
		Type:            p.Type,
		CommonInterests: p.CommonInterests,
		StartedAt:       startedAt,
		origin:          [2]QueueEntry{p.First, p.Second},
		status:          StatusActive,
		nextSeq:         1,
	}
}

func (s *Session) HasParticipant(userID string) bool {
	return userID != "" && (s.Participants[0] == userID || s.Participants[1] == userID)
}

// Peer returns the other participant. userID must be a participant.
func (s *Session) Peer(userID string) string {
	if s.Participants[0] == userID {
		return s.Participants[1]
	}
	return s.Participants[0]
}

func (s *Session) Status() SessionStatus {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.status
}

// EndReason is empty while the session is active.
func (s *Session) EndReason() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.reason
}

// EndedAt is zero while the session is active.
func (s *Session) EndedAt() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.endedAt
}

// Messages returns a copy of the log in sequence order.
func (s *Session) Messages() []Message {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// markEnded flips the session to ended. It reports false if it already was.
func (s *Session) markEnded(reason string, at time.Time) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.status == StatusEnded {
		return false
	}
	s.status = StatusEnded
	s.reason = reason
	s.endedAt = at
	return true
}

// SessionStore holds sessions by id plus the active-session index. Engine lock.
type SessionStore struct {
	sessions map[string]*Session
	active   map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		active:   make(map[string]string),
	}
}

func (st *SessionStore) add(s *Session) {
	st.sessions[s.ID] = s
	st.active[s.Participants[0]] = s.ID
	st.active[s.Participants[1]] = s.ID
}

func (st *SessionStore) get(sessionID string) (*Session, bool) {
	s, ok := st.sessions[sessionID]
	return s, ok
}

// activeFor resolves the user's active session through the index.
func (st *SessionStore) activeFor(userID string) (*Session, bool) {
	id, ok := st.active[userID]
	if !ok {
		return nil, false
	}
	s, ok := st.sessions[id]
	return s, ok
}

// release clears the index entry for userID if it still points at sessionID.
func (st *SessionStore) release(userID, sessionID string) {
	if st.active[userID] == sessionID {
		delete(st.active, userID)
	}
}

func (st *SessionStore) remove(sessionID string) {
	delete(st.sessions, sessionID)
}

func (st *SessionStore) inSession(userID string) bool {
	_, ok := st.active[userID]
	return ok
}
