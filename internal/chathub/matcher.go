package chathub

import (
	"github.com/samber/lo"
)

// Pairing is two entries the matcher removed from the pools to put in one session.
// First is the entry that triggered the match when there was one.
type Pairing struct {
	Type            Pool
	First, Second   QueueEntry
	CommonInterests []string
}

// Matcher pairs waiting users. It mutates the QueueManager it wraps and shares
// its lack of locking.
type Matcher struct {
	queues *QueueManager
}

func NewMatcher(queues *QueueManager) *Matcher {
	return &Matcher{queues: queues}
}

// Match tries to pair the entry that just joined. Random entries drain the random
// pool two at a time, the other pools search for a partner for e alone.
func (m *Matcher) Match(e QueueEntry) []Pairing {
	if !m.queues.Contains(e) {
		return nil
	}

	switch entry := e.(type) {
	case *RandomEntry:
		return m.matchRandom()
	case *GenderEntry:
		if p, ok := m.matchGender(entry); ok {
			return []Pairing{p}
		}
	case *InterestEntry:
		if p, ok := m.matchInterest(entry); ok {
			return []Pairing{p}
		}
	}
	return nil
}

func (m *Matcher) matchRandom() []Pairing {
	var out []Pairing
	for len(m.queues.random) >= 2 {
		first, second := m.queues.random[0], m.queues.random[1]
		m.queues.drop(first)
		m.queues.drop(second)
		out = append(out, Pairing{Type: PoolRandom, First: first, Second: second})
	}
	return out
}

func (m *Matcher) matchGender(trigger *GenderEntry) (Pairing, bool) {
	i, ok := pickGender(m.queues.gender, trigger)
	if !ok {
		return Pairing{}, false
	}
	candidate := m.queues.gender[i]
	m.queues.drop(trigger)
	m.queues.drop(candidate)
	return Pairing{Type: PoolGender, First: trigger, Second: candidate}, true
}

func (m *Matcher) matchInterest(trigger *InterestEntry) (Pairing, bool) {
	i, common, ok := pickInterest(m.queues.interest, trigger)
	if !ok {
		return Pairing{}, false
	}
	candidate := m.queues.interest[i]
	m.queues.drop(trigger)
	m.queues.drop(candidate)
	return Pairing{Type: PoolInterest, First: trigger, Second: candidate, CommonInterests: common}, true
}

// pickGender returns the oldest entry whose gender and preference are mutually
// compatible with trigger.
func pickGender(pool []*GenderEntry, trigger *GenderEntry) (int, bool) {
	for i, c := range pool {
		if c == trigger || c.userID == trigger.userID {
			continue
		}
		if c.Gender == trigger.PreferredGender && c.PreferredGender == trigger.Gender {
			return i, true
		}
	}
	return -1, false
}

// pickInterest returns the candidate sharing the most interests with trigger.
// Ties go to the candidate found first, which is the oldest.
func pickInterest(pool []*InterestEntry, trigger *InterestEntry) (int, []string, bool) {
	best, bestCommon := -1, []string(nil)
	for i, c := range pool {
		if c == trigger || c.userID == trigger.userID {
			continue
		}
		common := sharedInterests(trigger.Interests, c.Interests)
		if len(common) > len(bestCommon) {
			best, bestCommon = i, common
		}
	}
	if best < 0 {
		return -1, nil, false
	}
	return best, bestCommon, true
}

// sharedInterests keeps the order of mine.
func sharedInterests(mine, theirs []string) []string {
	return lo.Filter(mine, func(tag string, _ int) bool {
		return lo.Contains(theirs, tag)
	})
}
