package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/limitwatch/internal/domain"
	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
)

// User-facing texts.
const (
	TextNoProjects     = "❌ You have no access to any project."
	TextChooseProject  = "👋 Choose a project to manage:"
	TextSelectFirst    = "Please choose a project first by sending /start."
	TextAccessDenied   = "❌ You have no access to this command for this project."
	TextProjectDenied  = "❌ You have no access to this project."
	TextStale          = "This button is no longer active."
	TextStoreFailure   = "⚠️ Quota storage is unavailable, please try again later."
	TextMenu           = "Menu:"
	TextAskSet         = "Enter a new limit or choose a preset:"
	TextAskAdd         = "Enter an amount to add or choose a preset:"
	TextCancelHint     = "Press ❌ Cancel to abort."
	TextCancelled      = "Action cancelled."
	TextCancelledStart = "Action cancelled. Send /start to begin."
	TextHelp           = "ℹ️ Commands for the selected project:\n" +
		"/status – show the current limit and usage\n" +
		"/setlimit – set a new limit (resets the usage counter)\n" +
		"/add – add to the current limit\n" +
		"/help – this help\n\n" +
		"To switch projects use the '↩️ Change project' button or /start."
)

var numericInput = regexp.MustCompile(`^\d+$`)

// Service drives the per-user conversation: project selection, access checks
// and the multi-step limit dialogs.
type Service struct {
	projects Projects
	quotas   Quotas
	sessions *Sessions
	logger   *zap.Logger
}

// New creates a conversation service.
func New(projects Projects, quotas Quotas, sessions *Sessions, logger *zap.Logger) *Service {
	if sessions == nil {
		sessions = NewSessions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects: projects,
		quotas:   quotas,
		sessions: sessions,
		logger:   logger,
	}
}

// Session returns a snapshot of the user's session.
func (s *Service) Session(userID int64) Session { return s.sessions.Get(userID) }

// Authorize checks that a session has an active project the user may access.
func Authorize(projects Projects, sess Session, userID int64, access project.Access) (project.Project, error) {
	if !sess.HasProject() {
		return project.Project{}, domain.ErrNoProjectSelected
	}
	return projects.Authorize(sess.ProjectID, userID, access)
}

// guard runs Authorize and turns a refusal into a reply.
func (s *Service) guard(sess Session, userID int64, access project.Access) (project.Project, Response, bool) {
	p, err := Authorize(s.projects, sess, userID, access)
	switch {
	case err == nil:
		return p, Response{}, true
	case errors.Is(err, domain.ErrNoProjectSelected):
		return project.Project{}, say(TextSelectFirst, MenuKeep), false
	default:
		return project.Project{}, say(TextAccessDenied, MenuKeep), false
	}
}

// Start resets the session and offers the projects available to the user.
func (s *Service) Start(ctx context.Context, userID int64) Response {
	projects := s.projects.ForUser(userID)
	if len(projects) == 0 {
		s.logger.Info("Start without any project", zap.Int64("user_id", userID))
		return say(TextNoProjects, MenuRemove)
	}

	h := s.sessions.Lock(userID)
	defer h.Unlock()
	h.Reset()

	choices := make([]ProjectChoice, 0, len(projects))
	for _, p := range projects {
		choices = append(choices, ProjectChoice{ID: p.ID(), Name: p.Name()})
	}
	return Response{Messages: []Message{{Text: TextChooseProject, Picker: choices}}}
}

// SelectProject makes a project active for the user.
func (s *Service) SelectProject(ctx context.Context, userID int64, projectID string) Response {
	h := s.sessions.Lock(userID)
	defer h.Unlock()

	p, err := s.projects.Authorize(projectID, userID, project.AccessView)
	if err != nil {
		s.logger.Warn("Project selection denied",
			zap.Int64("user_id", userID),
			zap.String("project", projectID),
		)
		return Response{Notice: TextProjectDenied, Alert: true}
	}

	h.Set(Session{Step: StepProjectSelected, ProjectID: p.ID()})
	role := p.RoleOf(userID)
	return Response{
		EditSource: fmt.Sprintf("You selected '%s'.\nYour role: %s.\n\nUse the buttons below to manage it.", p.Name(), role),
		Messages:   []Message{{Text: TextMenu, Menu: menuFor(role)}},
	}
}

// Status shows the limit, usage and balance of the active project.
func (s *Service) Status(ctx context.Context, userID int64) Response {
	h := s.sessions.Lock(userID)
	defer h.Unlock()

	p, denied, ok := s.guard(h.Session(), userID, project.AccessView)
	if !ok {
		return denied
	}

	q, err := s.quotas.Status(ctx, p.ID())
	if err != nil {
		return s.failure(ctx, "status", p.ID(), err)
	}
	return say(fmt.Sprintf("📊 Status for '%s':\nLimit: %d\nUsed: %d\nRemaining: %d",
		p.Name(), q.Limit(), q.Used(), q.Remaining()), MenuKeep)
}

// SetLimit starts the dialog that replaces the limit.
func (s *Service) SetLimit(ctx context.Context, userID int64) Response {
	return s.ask(ctx, userID, domquota.ModeSet)
}

// AddLimit starts the dialog that grows the limit.
func (s *Service) AddLimit(ctx context.Context, userID int64) Response {
	return s.ask(ctx, userID, domquota.ModeAdd)
}

func (s *Service) ask(_ context.Context, userID int64, mode domquota.Mode) Response {
	h := s.sessions.Lock(userID)
	defer h.Unlock()

	sess := h.Session()
	if _, denied, ok := s.guard(sess, userID, project.AccessMutate); !ok {
		return denied
	}

	prompt, step := TextAskSet, StepAwaitingSet
	if mode == domquota.ModeAdd {
		prompt, step = TextAskAdd, StepAwaitingAdd
	}
	h.Set(Session{Step: step, ProjectID: sess.ProjectID})
	return Response{Messages: []Message{
		{Text: prompt, QuickPick: mode},
		{Text: TextCancelHint, Menu: MenuCancel},
	}}
}

// Help lists the project commands. Admins only.
func (s *Service) Help(_ context.Context, userID int64) Response {
	h := s.sessions.Lock(userID)
	defer h.Unlock()

	if _, denied, ok := s.guard(h.Session(), userID, project.AccessMutate); !ok {
		return denied
	}
	return say(TextHelp, MenuAdmin)
}

// Cancel abandons a pending dialog.
func (s *Service) Cancel(_ context.Context, userID int64) Response {
	h := s.sessions.Lock(userID)
	defer h.Unlock()

	sess := h.Session()
	if sess.HasProject() {
		if p, err := s.projects.Authorize(sess.ProjectID, userID, project.AccessView); err == nil {
			h.Set(Session{Step: StepProjectSelected, ProjectID: sess.ProjectID})
			return say(TextCancelled, menuFor(p.RoleOf(userID)))
		}
	}
	h.Reset()
	return say(TextCancelledStart, MenuRemove)
}

// Text handles free-form input. Only a non-negative integer sent while a value
// is awaited does anything; everything else is ignored.
func (s *Service) Text(ctx context.Context, userID int64, text string) Response {
	if !numericInput.MatchString(text) {
		return Response{}
	}

	h := s.sessions.Lock(userID)
	defer h.Unlock()

	sess := h.Session()
	if !sess.Step.Awaiting() {
		return Response{}
	}
	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// Overflows int64.
		return Response{}
	}

	mode := domquota.ModeSet
	if sess.Step == StepAwaitingAdd {
		mode = domquota.ModeAdd
	}
	return s.apply(ctx, h, userID, mode, value)
}

// QuickPick handles a preset button. The mode comes from the button, any
// awaiting step accepts it.
func (s *Service) QuickPick(ctx context.Context, userID int64, mode domquota.Mode, value int64) Response {
	h := s.sessions.Lock(userID)
	defer h.Unlock()

	if _, denied, ok := s.guard(h.Session(), userID, project.AccessMutate); !ok {
		return Response{Notice: denied.Messages[0].Text}
	}
	if !h.Session().Step.Awaiting() || !mode.IsValid() {
		return Response{Notice: TextStale, Alert: true}
	}

	resp := s.apply(ctx, h, userID, mode, value)
	if h.Session().Step == StepProjectSelected {
		resp.DeleteSource = true
	}
	return resp
}

func (s *Service) apply(ctx context.Context, h *Handle, userID int64, mode domquota.Mode, value int64) Response {
	sess := h.Session()
	p, denied, ok := s.guard(sess, userID, project.AccessMutate)
	if !ok {
		return denied
	}

	res, err := s.quotas.Apply(ctx, p.ID(), mode, value)
	if err != nil {
		return s.failure(ctx, string(mode), p.ID(), err)
	}

	h.Set(Session{Step: StepProjectSelected, ProjectID: sess.ProjectID})
	text := fmt.Sprintf("✅ Limit for '%s' set: %d", p.Name(), res.Limit)
	if mode == domquota.ModeAdd {
		text = fmt.Sprintf("➕ Limit for '%s' increased: +%d, new=%d", p.Name(), value, res.Limit)
	}
	return say(text, MenuAdmin)
}

func (s *Service) failure(ctx context.Context, op, projectID string, err error) Response {
	s.logger.Error("Quota operation failed",
		zap.String("op", op),
		zap.String("project", projectID),
		zap.Error(err),
	)
	return say(TextStoreFailure, MenuKeep)
}
