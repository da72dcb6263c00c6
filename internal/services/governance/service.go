package governance

import (
	"context"
	"fmt"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
	"github.com/somospye/pyebot-sub000/internal/domain/rules"
)

// RoleStore is the persistence boundary of the session machine. Reads
// happen on session create/refresh/reopen, writes only on save_confirm.
type RoleStore interface {
	ListRoles(ctx context.Context, guildID string) ([]model.ManagedRole, error)
	UpsertRole(ctx context.Context, role model.ManagedRole) (model.ManagedRole, error)
}

// ActionRequest carries one interaction into the machine. Values holds
// component selections, Data holds named form inputs.
type ActionRequest struct {
	SessionID string
	Action    string
	ActorID   string
	Values    []string
	Data      map[string]string
}

// ActionResult is what the presentation layer renders back.
type ActionResult struct {
	View   model.View
	Notice string
	Closed bool
}

type Service struct {
	store    RoleStore
	sessions *Store
}

func NewService(store RoleStore, sessions *Store) *Service {
	return &Service{store: store, sessions: sessions}
}

func (s *Service) Sessions() *Store { return s.sessions }

// SessionView renders the current screen of a session, for callers that
// need a view outside the action flow, right after creation for one.
func (s *Service) SessionView(session *Session) model.View {
	return buildView(session)
}

// CreateSession loads the guild's managed roles and opens an editing
// session owned by the moderator.
func (s *Service) CreateSession(ctx context.Context, guildID, moderatorID string) (*Session, error) {
	if s.store == nil || s.sessions == nil {
		return nil, fmt.Errorf("governance service dependencies are not configured")
	}
	if guildID == "" || moderatorID == "" {
		return nil, fmt.Errorf("guild id and moderator id are required")
	}

	roles, err := s.store.ListRoles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load managed roles: %w", err)
	}

	return s.sessions.Create(guildID, moderatorID, roles), nil
}

// HandleAction applies one session action. Every path checks ownership;
// expired sessions accept only reopen and close. Successful non-expired
// actions extend the inactivity deadline.
func (s *Service) HandleAction(ctx context.Context, req ActionRequest) (ActionResult, error) {
	if s.store == nil || s.sessions == nil {
		return ActionResult{}, fmt.Errorf("governance service dependencies are not configured")
	}

	session, ok := s.sessions.Get(req.SessionID)
	if !ok {
		return ActionResult{}, ErrSessionNotFound
	}
	if req.ActorID != session.ModeratorID {
		return ActionResult{}, ErrForbidden
	}

	if session.expired && req.Action != "reopen" && req.Action != "close" {
		return ActionResult{}, ErrSessionExpired
	}

	result, err := s.dispatch(ctx, session, req)
	if err != nil {
		return ActionResult{}, err
	}

	if result.Closed {
		s.sessions.Remove(session.ID)
		return result, nil
	}

	session.touch(s.sessions.now(), s.sessions.ttl)
	result.View = buildView(session)
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, session *Session, req ActionRequest) (ActionResult, error) {
	switch req.Action {
	case "select_role":
		return selectRole(session, firstValue(req))
	case "open_option":
		return openOption(session, firstValue(req))
	case "rename_confirm":
		return renameConfirm(session, req.Data["label"])
	case "map_select":
		return mapSelect(session, firstValue(req))
	case "map_clear":
		return mapClear(session)
	case "map_cancel":
		return mapCancel(session)
	case "map_apply":
		return mapApply(session)
	case "set_limit":
		return setLimit(session, req.Data["action"], req.Data["max_uses"], req.Data["window"])
	case "limits_cancel":
		return limitsCancel(session)
	case "limits_apply":
		return limitsApply(session)
	case "reach_select_override":
		return reachSelectOverride(session, req.Data["action"], req.Data["override"])
	case "reach_cancel":
		return reachCancel(session)
	case "reach_apply":
		return reachApply(session)
	case "back":
		return goHome(session)
	case "save_request":
		return saveRequest(session)
	case "save_confirm":
		return s.saveConfirm(ctx, session)
	case "save_continue":
		return saveContinue(session)
	case "refresh":
		return s.refresh(ctx, session)
	case "reopen":
		return s.reopen(ctx, session)
	case "close":
		return ActionResult{Closed: true, Notice: "Session closed."}, nil
	default:
		return ActionResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func goHome(session *Session) (ActionResult, error) {
	session.activeKey = ""
	session.state = enums.SessionStateHome
	session.data = stateData{}
	return ActionResult{}, nil
}

// saveRequest computes the diff preview over every dirty role and moves
// to the confirmation screen. Nothing dirty is a caller error.
func saveRequest(session *Session) (ActionResult, error) {
	if session.state != enums.SessionStateHome && session.state != enums.SessionStateRoleMenu {
		return ActionResult{}, fmt.Errorf("%w: save_request in state %s", ErrUnknownAction, session.state)
	}
	dirty := session.DirtyKeys()
	if len(dirty) == 0 {
		return ActionResult{}, ErrNoPendingChanges
	}

	preview := make([]rules.RoleDiff, 0, len(dirty))
	for _, key := range dirty {
		draft := session.draft[key]
		var original *model.ManagedRole
		if orig, ok := session.original[key]; ok {
			original = &orig
		}
		preview = append(preview, rules.DiffRole(original, draft))
	}

	session.state = enums.SessionStateConfirmSave
	session.data = stateData{preview: preview}
	return ActionResult{}, nil
}

// saveConfirm persists every dirty role, one independent write each. A
// failure stops the commit: roles already written stay committed, the
// failing role stays dirty, and the error names it.
func (s *Service) saveConfirm(ctx context.Context, session *Session) (ActionResult, error) {
	if session.state != enums.SessionStateConfirmSave {
		return ActionResult{}, fmt.Errorf("%w: save_confirm in state %s", ErrUnknownAction, session.state)
	}

	committed := 0
	for _, key := range session.DirtyKeys() {
		role := session.draft[key].Clone()
		role.GuildID = session.GuildID
		role.Key = key
		role.UpdatedBy = session.ModeratorID

		stored, err := s.store.UpsertRole(ctx, role)
		if err != nil {
			session.state = enums.SessionStateRoleMenu
			session.data = stateData{}
			return ActionResult{}, fmt.Errorf("%w: role %q: %v", ErrPersistence, key, err)
		}

		session.original[key] = stored.Clone()
		session.draft[key] = stored.Clone()
		delete(session.dirty, key)
		committed++
	}

	session.state = enums.SessionStateRoleMenu
	if _, ok := session.draft[session.activeKey]; !ok {
		session.state = enums.SessionStateHome
		session.activeKey = ""
	}
	session.data = stateData{}
	return ActionResult{Notice: fmt.Sprintf("Saved %d role(s).", committed)}, nil
}

// saveContinue abandons the preview but keeps all pending edits.
func saveContinue(session *Session) (ActionResult, error) {
	if session.state != enums.SessionStateConfirmSave {
		return ActionResult{}, fmt.Errorf("%w: save_continue in state %s", ErrUnknownAction, session.state)
	}
	session.state = enums.SessionStateRoleMenu
	if _, ok := session.draft[session.activeKey]; !ok {
		session.state = enums.SessionStateHome
		session.activeKey = ""
	}
	session.data = stateData{}
	return ActionResult{Notice: "Changes kept, not saved."}, nil
}

// refresh reloads both snapshots from the store. It refuses while edits
// are pending so unsaved work is never silently discarded.
func (s *Service) refresh(ctx context.Context, session *Session) (ActionResult, error) {
	if len(session.dirty) > 0 {
		return ActionResult{}, ErrUnsavedChanges
	}

	roles, err := s.store.ListRoles(ctx, session.GuildID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("reload managed roles: %w", err)
	}

	session.loadSnapshot(roles)
	session.activeKey = ""
	session.state = enums.SessionStateHome
	session.data = stateData{}
	return ActionResult{Notice: "Reloaded from the store."}, nil
}

// reopen recovers a timed-out session: fresh snapshots, back to HOME.
func (s *Service) reopen(ctx context.Context, session *Session) (ActionResult, error) {
	roles, err := s.store.ListRoles(ctx, session.GuildID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("reload managed roles: %w", err)
	}

	session.expired = false
	session.loadSnapshot(roles)
	session.activeKey = ""
	session.state = enums.SessionStateHome
	session.data = stateData{}
	return ActionResult{Notice: "Session reopened."}, nil
}

func firstValue(req ActionRequest) string {
	if len(req.Values) == 0 {
		return ""
	}
	return req.Values[0]
}
