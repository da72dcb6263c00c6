package governance

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
	"github.com/somospye/pyebot-sub000/internal/domain/rules"
)

const DefaultTTL = 5 * time.Minute

// stateData carries the payload of the active screen. Exactly one field
// is populated at a time; sub-editors snapshot the object they edit so
// cancel can restore it verbatim.
type stateData struct {
	pendingMapping *mappingSnapshot
	pendingLimits  map[string]model.LimitRecord
	pendingReach   map[string]enums.OverrideValue
	preview        []rules.RoleDiff
}

type mappingSnapshot struct {
	platformRoleID *string
}

// Session is one moderator's ephemeral editing session over a guild's
// managed roles. All edits land in draft; original only moves on load,
// refresh, reopen and commit.
type Session struct {
	ID          string
	GuildID     string
	ModeratorID string

	original map[string]model.ManagedRole
	draft    map[string]model.ManagedRole

	dirty     map[string]struct{}
	state     enums.SessionState
	data      stateData
	activeKey string

	expiresAt time.Time
	expired   bool
}

func newSession(guildID, moderatorID string, roles []model.ManagedRole, now time.Time, ttl time.Duration) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		ModeratorID: moderatorID,
		dirty:       make(map[string]struct{}),
		state:       enums.SessionStateHome,
		expiresAt:   now.Add(ttl),
	}
	s.loadSnapshot(roles)
	return s
}

// loadSnapshot replaces both snapshots with the given store state and
// clears all dirty tracking.
func (s *Session) loadSnapshot(roles []model.ManagedRole) {
	byKey := make(map[string]model.ManagedRole, len(roles))
	for _, role := range roles {
		byKey[role.Key] = role
	}
	s.original = model.CloneRoleMap(byKey)
	s.draft = model.CloneRoleMap(byKey)
	s.dirty = make(map[string]struct{})
}

func (s *Session) State() enums.SessionState { return s.state }

func (s *Session) Expired() bool { return s.expired }

func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// ActiveRole returns the draft role currently selected, if any.
func (s *Session) ActiveRole() (model.ManagedRole, bool) {
	role, ok := s.draft[s.activeKey]
	return role, ok
}

// DirtyKeys returns the keys of roles whose draft differs from original,
// sorted for stable iteration.
func (s *Session) DirtyKeys() []string {
	keys := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DraftRole returns a copy of one draft role.
func (s *Session) DraftRole(key string) (model.ManagedRole, bool) {
	role, ok := s.draft[key]
	if !ok {
		return model.ManagedRole{}, false
	}
	return role.Clone(), true
}

// OriginalRole returns a copy of one original-snapshot role.
func (s *Session) OriginalRole(key string) (model.ManagedRole, bool) {
	role, ok := s.original[key]
	if !ok {
		return model.ManagedRole{}, false
	}
	return role.Clone(), true
}

// recomputeDirty re-derives the dirty flag of one role from the shared
// equality rule. A key absent from original is always dirty.
func (s *Session) recomputeDirty(key string) {
	orig, ok := s.original[key]
	if !ok {
		s.dirty[key] = struct{}{}
		return
	}
	if rules.RolesEqual(orig, s.draft[key]) {
		delete(s.dirty, key)
	} else {
		s.dirty[key] = struct{}{}
	}
}

// touch extends the inactivity deadline after a successful action.
func (s *Session) touch(now time.Time, ttl time.Duration) {
	s.expiresAt = now.Add(ttl)
}

// freeze moves the session into its terminal timeout state.
func (s *Session) freeze() {
	s.expired = true
	s.state = enums.SessionStateTimeout
	s.data = stateData{}
}

// Store is the in-memory session registry. Expiry is driven externally
// through Sweep rather than per-session timers, so tests can tick it.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetNow replaces the clock, for tests.
func (st *Store) SetNow(now func() time.Time) {
	if now != nil {
		st.now = now
	}
}

func (st *Store) TTL() time.Duration { return st.ttl }

// Create registers a new session seeded with the given role snapshot.
func (st *Store) Create(guildID, moderatorID string, roles []model.ManagedRole) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := newSession(guildID, moderatorID, roles, st.now(), st.ttl)
	st.sessions[s.ID] = s
	return s
}

// Get returns a live session by id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	return s, ok
}

// Remove drops a session from the registry.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Sweep freezes every session idle past its deadline and reports how
// many it froze. Frozen sessions stay registered so the moderator can
// still reopen or close them.
func (st *Store) Sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	frozen := 0
	for _, s := range st.sessions {
		if !s.expired && now.Compare(s.expiresAt) >= 0 {
			s.freeze()
			frozen++
		}
	}
	return frozen
}

// Len reports the number of registered sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
