package chathub

import (
	"slices"
	"time"
)

// Pool names a waiting pool. The same names are used as session types.
type Pool string

const (
	PoolRandom   Pool = "random"
	PoolGender   Pool = "gender"
	PoolInterest Pool = "interest"
)

// QueueEntry is one user waiting in one pool. The set of variants is closed:
// *RandomEntry, *GenderEntry and *InterestEntry.
type QueueEntry interface {
	Pool() Pool
	UserID() string
	EnqueuedAt() time.Time
	// Ticket is unique per enqueue and identifies this wait across re-joins.
	Ticket() uint64
	// requeue returns a fresh entry with the same criteria.
	requeue() QueueEntry
	base() *waiting
}

type waiting struct {
	userID     string
	enqueuedAt time.Time
	ticket     uint64
	timer      Timer
}

func (w *waiting) UserID() string        { return w.userID }
func (w *waiting) EnqueuedAt() time.Time { return w.enqueuedAt }
func (w *waiting) Ticket() uint64        { return w.ticket }
func (w *waiting) base() *waiting        { return w }

type RandomEntry struct {
	waiting
}

type GenderEntry struct {
	waiting
	Gender          string
	PreferredGender string
}

type InterestEntry struct {
	waiting
	Interests []string
}

func (*RandomEntry) Pool() Pool   { return PoolRandom }
func (*GenderEntry) Pool() Pool   { return PoolGender }
func (*InterestEntry) Pool() Pool { return PoolInterest }

func (e *RandomEntry) requeue() QueueEntry { return NewRandomEntry(e.userID) }
func (e *GenderEntry) requeue() QueueEntry {
	return NewGenderEntry(e.userID, e.Gender, e.PreferredGender)
}
func (e *InterestEntry) requeue() QueueEntry { return NewInterestEntry(e.userID, e.Interests) }

func NewRandomEntry(userID string) *RandomEntry {
	return &RandomEntry{waiting: waiting{userID: userID}}
}

func NewGenderEntry(userID, gender, preferred string) *GenderEntry {
	return &GenderEntry{waiting: waiting{userID: userID}, Gender: gender, PreferredGender: preferred}
}

func NewInterestEntry(userID string, interests []string) *InterestEntry {
	return &InterestEntry{waiting: waiting{userID: userID}, Interests: interests}
}

// QueueManager owns the three pools. A user has at most one entry across all of them.
// It is not safe for concurrent use; the engine serializes access.
type QueueManager struct {
	random   []*RandomEntry
	gender   []*GenderEntry
	interest []*InterestEntry
	byUser   map[string]QueueEntry
	tickets  uint64
	now      func() time.Time
}

func NewQueueManager(now func() time.Time) *QueueManager {
	if now == nil {
		now = time.Now
	}
	return &QueueManager{
		byUser: make(map[string]QueueEntry),
		now:    now,
	}
}

// Enqueue appends e to the back of its pool, first removing any entry the same user
// already holds. The replaced entry is returned, or nil.
func (q *QueueManager) Enqueue(e QueueEntry) QueueEntry {
	prev := q.Remove(e.UserID())

	q.tickets++
	e.base().ticket = q.tickets
	e.base().enqueuedAt = q.now()
	switch entry := e.(type) {
	case *RandomEntry:
		q.random = append(q.random, entry)
	case *GenderEntry:
		q.gender = append(q.gender, entry)
	case *InterestEntry:
		q.interest = append(q.interest, entry)
	}
	q.byUser[e.UserID()] = e
	return prev
}

// Remove takes the user out of whichever pool holds them and cancels the entry's
// timeout. It returns the removed entry, or nil.
func (q *QueueManager) Remove(userID string) QueueEntry {
	e, ok := q.byUser[userID]
	if !ok {
		return nil
	}
	q.drop(e)
	return e
}

func (q *QueueManager) drop(e QueueEntry) {
	switch entry := e.(type) {
	case *RandomEntry:
		q.random = slices.DeleteFunc(q.random, func(x *RandomEntry) bool { return x == entry })
	case *GenderEntry:
		q.gender = slices.DeleteFunc(q.gender, func(x *GenderEntry) bool { return x == entry })
	case *InterestEntry:
		q.interest = slices.DeleteFunc(q.interest, func(x *InterestEntry) bool { return x == entry })
	}
	delete(q.byUser, e.UserID())
	if t := e.base().timer; t != nil {
		t.Stop()
		e.base().timer = nil
	}
}

// Contains reports whether the entry's ticket is still waiting.
func (q *QueueManager) Contains(e QueueEntry) bool {
	cur, ok := q.byUser[e.UserID()]
	return ok && cur.Ticket() == e.Ticket()
}

func (q *QueueManager) Lookup(userID string) (QueueEntry, bool) {
	e, ok := q.byUser[userID]
	return e, ok
}

// Waiting lists the user ids in a pool, oldest first.
func (q *QueueManager) Waiting(pool Pool) []string {
	var ids []string
	switch pool {
	case PoolRandom:
		for _, e := range q.random {
			ids = append(ids, e.userID)
		}
	case PoolGender:
		for _, e := range q.gender {
			ids = append(ids, e.userID)
		}
	case PoolInterest:
		for _, e := range q.interest {
			ids = append(ids, e.userID)
		}
	}
	return ids
}

func (q *QueueManager) Len() int {
	return len(q.byUser)
}

func (q *QueueManager) setTimer(e QueueEntry, t Timer) {
	e.base().timer = t
}
