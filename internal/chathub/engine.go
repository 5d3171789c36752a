package chathub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// endReasonAborted marks a session that was reserved but never announced.
const endReasonAborted = "aborted"

// Options tune an Engine. Zero values fall back to the config defaults.
type Options struct {
	QueueTimeout     time.Duration
	SessionRetention time.Duration
	Scheduler        Scheduler
	Localizer        *localization.Localizer
	Now              func() time.Time
}

// Engine owns every piece of shared chat state: the waiting pools, the
// active-session index and the sessions themselves, all behind mu.
// The registry keeps its own lock. Lock order is mu, then a session's stateMu,
// then the registry; no storage call is made while mu is held.
type Engine struct {
	mu       sync.Mutex
	queues   *QueueManager
	matcher  *Matcher
	sessions *SessionStore

	registry *Registry
	storage  storage.Storage
	sched    Scheduler
	loc      *localization.Localizer
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time

	queueTimeout time.Duration
	retention    time.Duration
}

func NewEngine(s storage.Storage, log *slog.Logger, opts Options) *Engine {
	if opts.QueueTimeout <= 0 {
		opts.QueueTimeout = config.DefaultQueueTimeout
	}
	if opts.SessionRetention <= 0 {
		opts.SessionRetention = config.DefaultSessionRetention
	}
	if opts.Scheduler == nil {
		opts.Scheduler = realScheduler{}
	}
	if opts.Localizer == nil {
		opts.Localizer = localization.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	registry := NewRegistry(log)
	registry.SetListener(NewPresenceNotifier(s, s, registry, log))

	queues := NewQueueManager(opts.Now)
	return &Engine{
		queues:       queues,
		matcher:      NewMatcher(queues),
		sessions:     NewSessionStore(),
		registry:     registry,
		storage:      s,
		sched:        opts.Scheduler,
		loc:          opts.Localizer,
		validate:     validator.New(),
		log:          log,
		now:          opts.Now,
		queueTimeout: opts.QueueTimeout,
		retention:    opts.SessionRetention,
	}
}

// Stats is a point-in-time view of the engine's load.
type Stats struct {
	Online         int `json:"online"`
	Queued         int `json:"queued"`
	ActiveSessions int `json:"activeSessions"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	queued, active := e.queues.Len(), len(e.sessions.active)/2
	e.mu.Unlock()
	return Stats{Online: e.registry.Count(), Queued: queued, ActiveSessions: active}
}

func (e *Engine) IsOnline(userID string) bool {
	return e.registry.IsOnline(userID)
}

// Session looks up a live or recently ended session.
func (e *Engine) Session(sessionID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions.get(sessionID)
}

// ActiveSession returns the session the user is currently in.
func (e *Engine) ActiveSession(userID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions.activeFor(userID)
}

// QueuedIn reports which pool the user waits in.
func (e *Engine) QueuedIn(userID string) (Pool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.queues.Lookup(userID)
	if !ok {
		return "", false
	}
	return entry.Pool(), true
}

// Connect registers an authenticated connection.
func (e *Engine) Connect(ctx context.Context, c Client) {
	e.registry.Register(ctx, c)
	e.log.Info("User connected", "user_id", c.GetUserID())
}

// Disconnect releases c. Only the user's current connection triggers cleanup: the
// user leaves any pool and an active session ends with reason "disconnected".
// Calling it again, or for a replaced connection, does nothing.
func (e *Engine) Disconnect(ctx context.Context, c Client) {
	userID := c.GetUserID()
	if !e.registry.UnregisterClient(ctx, c) {
		return
	}

	e.mu.Lock()
	if e.registry.IsOnline(userID) {
		// Reconnected in the meantime; the new connection keeps the user's state.
		e.mu.Unlock()
		return
	}
	e.queues.Remove(userID)
	var ended *Session
	if s, ok := e.sessions.activeFor(userID); ok {
		if persist, err := e.endLocked(s, userID, models.EndReasonDisconnected); err == nil && persist {
			ended = s
		}
	}
	e.mu.Unlock()

	if ended != nil {
		e.persistEnd(ctx, ended)
	}
	e.log.Info("User disconnected", "user_id", userID)
}

func (e *Engine) JoinRandom(ctx context.Context, userID string) error {
	return e.join(ctx, NewRandomEntry(userID))
}

func (e *Engine) JoinGender(ctx context.Context, userID, gender, preferred string) error {
	if !lo.Contains(config.Genders, gender) || !lo.Contains(config.Genders, preferred) {
		return newError(ErrValidation, "error.invalid_payload")
	}
	return e.join(ctx, NewGenderEntry(userID, gender, preferred))
}

func (e *Engine) JoinInterest(ctx context.Context, userID string, interests []string) error {
	tooLong := lo.SomeBy(interests, func(tag string) bool {
		return len(strings.TrimSpace(tag)) > config.MaxInterestLength
	})
	if tooLong {
		return newError(ErrValidation, "error.invalid_payload")
	}
	tags := normalizeInterests(interests)
	if len(tags) == 0 || len(tags) > config.MaxInterests {
		return newError(ErrValidation, "error.invalid_payload")
	}
	return e.join(ctx, NewInterestEntry(userID, tags))
}

// normalizeInterests lowercases and trims tags, dropping blanks and repeats.
func normalizeInterests(interests []string) []string {
	tags := lo.FilterMap(interests, func(tag string, _ int) (string, bool) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		return tag, tag != ""
	})
	return lo.Uniq(tags)
}

func (e *Engine) join(ctx context.Context, entry QueueEntry) error {
	userID := entry.UserID()

	banned, err := e.storage.IsUserBanned(ctx, userID)
	if err != nil {
		return wrapError(ErrPersistence, "error.internal", err)
	}
	if banned {
		return newError(ErrAuthorization, "error.banned")
	}

	e.mu.Lock()
	if e.sessions.inSession(userID) {
		e.mu.Unlock()
		return newError(ErrConflict, "error.already_in_session")
	}
	pending := e.enqueueLocked(entry, queueJoined(entry.Pool()))
	e.mu.Unlock()

	e.log.Debug("User queued", "user_id", userID, "pool", entry.Pool())
	e.startSessions(ctx, pending)
	return nil
}

// enqueueLocked queues entry and reserves a session for every pairing the matcher forms.
func (e *Engine) enqueueLocked(entry QueueEntry, ack models.Event) []*Session {
	e.waitLocked(entry, ack)
	return e.reserveLocked(e.matcher.Match(entry))
}

// waitLocked queues entry without matching, acks the owner and arms the pool timeout.
// An empty ack is not sent.
func (e *Engine) waitLocked(entry QueueEntry, ack models.Event) {
	e.queues.Enqueue(entry)
	if ack.Name != "" {
		e.registry.Send(entry.UserID(), ack)
	}
	if entry.Pool() != PoolRandom {
		e.armTimeout(entry)
	}
}

func (e *Engine) armTimeout(entry QueueEntry) {
	userID, from, ticket := entry.UserID(), entry.Pool(), entry.Ticket()
	t := e.sched.AfterFunc(e.queueTimeout, func() {
		e.onQueueTimeout(userID, from, ticket)
	})
	e.queues.setTimer(entry, t)
}

// onQueueTimeout moves a user that waited too long in the gender or interest pool to
// the random pool. A ticket that is no longer waiting means the user matched, left or
// re-joined, and nothing happens.
func (e *Engine) onQueueTimeout(userID string, from Pool, ticket uint64) {
	e.mu.Lock()
	cur, ok := e.queues.Lookup(userID)
	if !ok || cur.Ticket() != ticket {
		e.mu.Unlock()
		return
	}
	e.queues.Remove(userID)
	ack := models.Event{
		Name: models.EventQueueSwitched,
		Data: models.QueueSwitchedPayload{
			From:    string(from),
			To:      string(PoolRandom),
			Message: e.text(userID, "queue.switched."+string(from)),
		},
	}
	pending := e.enqueueLocked(NewRandomEntry(userID), ack)
	e.mu.Unlock()

	e.log.Info("Queue wait timed out, switched to random", "user_id", userID, "from", from)
	e.startSessions(context.Background(), pending)
}

func (e *Engine) reserveLocked(pairs []Pairing) []*Session {
	out := make([]*Session, 0, len(pairs))
	for _, p := range pairs {
		s := newSession(uuid.NewString(), p, e.now())
		e.sessions.add(s)
		out = append(out, s)
	}
	return out
}

func (e *Engine) startSessions(ctx context.Context, pending []*Session) {
	for _, s := range pending {
		e.openSession(ctx, s)
	}
}

// openSession persists a reserved session and announces it. If persistence fails, or
// a participant left before the announcement, the reservation is rolled back and the
// remaining connected users go back to the pool they came from. After a failure they
// are not matched again until someone else joins that pool.
func (e *Engine) openSession(ctx context.Context, s *Session) {
	profiles, err := e.loadProfiles(ctx, s)
	if err == nil {
		err = e.storage.CreateSession(ctx, &models.ChatSession{
			SessionID:       s.ID,
			User1ID:         s.Participants[0],
			User2ID:         s.Participants[1],
			Type:            string(s.Type),
			CommonInterests: s.CommonInterests,
			Status:          models.SessionStatusActive,
			StartedAt:       s.StartedAt,
		})
	}
	persisted := err == nil

	e.mu.Lock()
	if persisted && s.Status() == StatusActive {
		s.announced = true
		for i, userID := range s.Participants {
			e.registry.Send(userID, models.Event{
				Name: models.EventMatched,
				Data: models.MatchedPayload{
					SessionID:       s.ID,
					Type:            string(s.Type),
					PeerProfile:     profiles[s.Participants[1-i]],
					CommonInterests: lo.Ternary(s.CommonInterests == nil, []string{}, s.CommonInterests),
				},
			})
		}
		e.mu.Unlock()
		e.log.Info("Session started", "session_id", s.ID, "type", s.Type, "user1", s.Participants[0], "user2", s.Participants[1])
		return
	}

	if err != nil {
		e.log.Error("Failed to create session, rolling back", "session_id", s.ID, "error", err)
	}
	s.markEnded(endReasonAborted, e.now())
	e.sessions.release(s.Participants[0], s.ID)
	e.sessions.release(s.Participants[1], s.ID)
	e.sessions.remove(s.ID)

	var pending []*Session
	for _, entry := range s.origin {
		userID := entry.UserID()
		if !e.registry.IsOnline(userID) {
			continue
		}
		if err != nil {
			e.registry.Send(userID, e.errorEvent(userID, "error.create_session"))
		}
		if e.sessions.inSession(userID) {
			continue
		}
		if _, queued := e.queues.Lookup(userID); queued {
			continue
		}
		if err != nil {
			// Matching the same pair again would hit the same failure; wait for the next join.
			e.waitLocked(entry.requeue(), queueJoined(entry.Pool()))
			continue
		}
		pending = append(pending, e.enqueueLocked(entry.requeue(), queueJoined(entry.Pool()))...)
	}
	e.mu.Unlock()

	if persisted {
		// Ended before it was announced; the stored row must not stay active.
		if err := e.storage.EndSession(ctx, s.ID, endReasonAborted); err != nil {
			e.log.Error("Failed to close aborted session", "session_id", s.ID, "error", err)
		}
	}
	e.startSessions(ctx, pending)
}

func (e *Engine) loadProfiles(ctx context.Context, s *Session) (map[string]models.PublicProfile, error) {
	users, err := e.storage.GetUsersByIDs(ctx, s.Participants[:])
	if err != nil {
		return nil, err
	}
	profiles := lo.SliceToMap(users, func(u models.User) (string, models.PublicProfile) {
		return u.ID, u.Profile()
	})
	for _, id := range s.Participants {
		if _, ok := profiles[id]; !ok {
			return nil, fmt.Errorf("profile of %s: %w", id, storage.ErrNotFound)
		}
	}
	return profiles, nil
}

// SendMessage appends text to the session log and broadcasts it to both participants.
func (e *Engine) SendMessage(ctx context.Context, userID, sessionID, text string) error {
	if strings.TrimSpace(text) == "" || len([]rune(text)) > config.MaxMessageLength {
		return newError(ErrValidation, "error.invalid_payload")
	}
	s, err := e.participantSession(userID, sessionID)
	if err != nil {
		return err
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	if s.Status() != StatusActive {
		return newError(ErrConflict, "error.session_ended")
	}

	msg := Message{
		ID:       newMessageID(),
		Seq:      s.nextSeq,
		SenderID: userID,
		Text:     text,
		SentAt:   e.now(),
	}
	if err := e.storage.AppendMessage(ctx, &models.SessionMessage{
		ID:        msg.ID,
		SessionID: s.ID,
		Seq:       msg.Seq,
		SenderID:  msg.SenderID,
		Content:   msg.Text,
		SentAt:    msg.SentAt,
	}); err != nil {
		e.log.Error("Failed to persist message", "session_id", s.ID, "sender_id", userID, "error", err)
		return wrapError(ErrPersistence, "error.internal", err)
	}
	s.nextSeq++

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.status != StatusActive {
		// Ended while the row was being written.
		return newError(ErrConflict, "error.session_ended")
	}
	s.messages = append(s.messages, msg)

	evt := models.Event{
		Name: models.EventMessageReceived,
		Data: models.MessageReceivedPayload{
			SessionID: s.ID,
			Message: models.MessagePayload{
				ID:        msg.ID,
				Seq:       msg.Seq,
				SenderID:  msg.SenderID,
				Text:      msg.Text,
				Timestamp: msg.SentAt,
			},
		},
	}
	for _, p := range s.Participants {
		e.registry.Send(p, evt)
	}
	return nil
}

// Typing relays a typing indicator to the peer.
func (e *Engine) Typing(userID, sessionID string, isTyping bool) error {
	s, err := e.participantSession(userID, sessionID)
	if err != nil {
		return err
	}
	if s.Status() != StatusActive {
		return newError(ErrConflict, "error.session_ended")
	}
	e.registry.Send(s.Peer(userID), models.Event{
		Name: models.EventUserTyping,
		Data: models.UserTypingPayload{SessionID: s.ID, UserID: userID, IsTyping: isTyping},
	})
	return nil
}

// OnlineStatus reports which of ids currently have a connection.
func (e *Engine) OnlineStatus(ids []string) map[string]bool {
	return e.registry.OnlineMap(ids)
}

// End closes the user's active session.
func (e *Engine) End(ctx context.Context, userID string) error {
	e.mu.Lock()
	s, ok := e.announcedSessionLocked(userID)
	e.mu.Unlock()
	if !ok {
		return newError(ErrConflict, "error.not_in_session")
	}
	return e.EndSession(ctx, s.ID, userID, models.EndReasonEnded)
}

// announcedSessionLocked returns the user's active session once its participants have
// been told about it. A session still being opened belongs to openSession.
func (e *Engine) announcedSessionLocked(userID string) (*Session, bool) {
	s, ok := e.sessions.activeFor(userID)
	if !ok || !s.announced {
		return nil, false
	}
	return s, true
}

// EndSession ends sessionID on behalf of initiatorID. The peer is told why; an
// explicit end is also acknowledged to the initiator.
func (e *Engine) EndSession(ctx context.Context, sessionID, initiatorID, reason string) error {
	e.mu.Lock()
	s, ok := e.sessions.get(sessionID)
	if !ok || !s.announced {
		e.mu.Unlock()
		return newError(ErrNotFound, "error.session_not_found")
	}
	if !s.HasParticipant(initiatorID) {
		e.mu.Unlock()
		return newError(ErrAuthorization, "error.not_participant")
	}
	persist, err := e.endLocked(s, initiatorID, reason)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if reason == models.EndReasonEnded {
		e.registry.Send(initiatorID, models.Event{
			Name: models.EventEnded,
			Data: models.EndedPayload{SessionID: s.ID, Reason: reason, Message: e.text(initiatorID, "ended.self")},
		})
	}
	e.mu.Unlock()

	if persist {
		e.persistEnd(ctx, s)
	}
	e.log.Info("Session ended", "session_id", s.ID, "initiator", initiatorID, "reason", reason)
	return nil
}

// Skip ends the user's active session and puts them straight back in the random pool.
func (e *Engine) Skip(ctx context.Context, userID string) error {
	e.mu.Lock()
	s, ok := e.announcedSessionLocked(userID)
	if !ok {
		e.mu.Unlock()
		return newError(ErrConflict, "error.not_in_session")
	}
	persist, err := e.endLocked(s, userID, models.EndReasonSkipped)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.registry.Send(userID, models.Event{Name: models.EventSkipped})
	pending := e.enqueueLocked(NewRandomEntry(userID), queueJoined(PoolRandom))
	e.mu.Unlock()

	if persist {
		e.persistEnd(ctx, s)
	}
	e.log.Info("Session skipped", "session_id", s.ID, "user_id", userID)
	e.startSessions(ctx, pending)
	return nil
}

// endLocked moves s to ended, clears both index entries and notifies the peer.
// It reports whether the end must be persisted, which is the case once the session
// was announced; an unannounced session is cleaned up by openSession.
func (e *Engine) endLocked(s *Session, initiatorID, reason string) (bool, error) {
	if !s.markEnded(reason, e.now()) {
		return false, newError(ErrConflict, "error.session_ended")
	}
	e.sessions.release(s.Participants[0], s.ID)
	e.sessions.release(s.Participants[1], s.ID)

	if s.announced {
		peer := s.Peer(initiatorID)
		e.registry.Send(peer, models.Event{
			Name: models.EventEnded,
			Data: models.EndedPayload{SessionID: s.ID, Reason: reason, Message: e.text(peer, "ended."+reason)},
		})
	}
	e.scheduleEviction(s)
	return s.announced, nil
}

func (e *Engine) persistEnd(ctx context.Context, s *Session) {
	if err := e.storage.EndSession(ctx, s.ID, s.EndReason()); err != nil {
		e.log.Error("Failed to persist session end", "session_id", s.ID, "error", err)
	}
}

// scheduleEviction forgets an ended session once the retention window passes.
func (e *Engine) scheduleEviction(s *Session) {
	e.sched.AfterFunc(e.retention, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if cur, ok := e.sessions.get(s.ID); ok && cur == s {
			e.sessions.remove(s.ID)
		}
	})
}

func (e *Engine) participantSession(userID, sessionID string) (*Session, error) {
	e.mu.Lock()
	s, ok := e.sessions.get(sessionID)
	e.mu.Unlock()
	if !ok {
		return nil, newError(ErrNotFound, "error.session_not_found")
	}
	if !s.HasParticipant(userID) {
		return nil, newError(ErrAuthorization, "error.not_participant")
	}
	return s, nil
}

// text renders key in the language of the user's connection.
func (e *Engine) text(userID, key string) string {
	lang := localization.DefaultLanguage
	if c, ok := e.registry.client(userID); ok {
		if la, ok := c.(languageAware); ok && la.Language() != "" {
			lang = la.Language()
		}
	}
	return e.loc.GetString(lang, key)
}

func (e *Engine) errorEvent(userID, key string) models.Event {
	return models.Event{
		Name: models.EventError,
		Data: models.ErrorPayload{Message: e.text(userID, key)},
	}
}

func queueJoined(pool Pool) models.Event {
	return models.Event{
		Name: models.EventQueueJoined,
		Data: models.QueueJoinedPayload{Type: string(pool)},
	}
}
