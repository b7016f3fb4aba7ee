package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taleforge/taleforge/internal/auth"
	"github.com/taleforge/taleforge/internal/hub"
	"github.com/taleforge/taleforge/internal/logger"
	"github.com/taleforge/taleforge/internal/story"
	"github.com/taleforge/taleforge/internal/wire"
)

// Protocol messages. The wire protocol has no type tags; clients interpret
// frames by their position in the session sequence.
const (
	msgWelcome       = "Welcome to the Game! Do you want to [R]egister or [L]ogin?"
	msgBadMode       = "Unrecognized option. Send R to register or L to login."
	msgAskUsername   = "Enter username: "
	msgAskPassword   = "Enter password: "
	msgRegistered    = "Registration successful! You can now login.\n"
	msgDuplicateUser = "Username already exists. Please try again.\n"
	msgLoginFailed   = "Login failed. Check your username and password.\n"
	msgBusy          = "[Another action is currently being processed. Please wait.]"
	msgGenFailed     = "[The storyteller did not respond. Your action was not recorded; please try again.]"
	msgKeywordsStart = "[Keywords generating...]"
	msgKeywordsDone  = "[Keywords generation completed.]"
)

// Session drives the per-connection protocol: greeting, then registration or
// login, then the authenticated action loop. Each session runs in its own
// goroutine and owns its connection exclusively; all cross-session traffic
// goes through the hub.
type Session struct {
	id    string
	conn  *wire.Conn
	hub   *hub.Hub
	users *auth.Store
	story *story.Store
	gate  *ActionGate
}

// NewSession creates a session for an accepted connection.
func NewSession(id string, conn *wire.Conn, h *hub.Hub, users *auth.Store, st *story.Store, gate *ActionGate) *Session {
	return &Session{
		id:    id,
		conn:  conn,
		hub:   h,
		users: users,
		story: st,
		gate:  gate,
	}
}

// Run executes the session to completion. The connection is registered with
// the hub for its whole lifetime and is unregistered and closed on every
// exit path.
func (s *Session) Run(ctx context.Context) {
	s.hub.Register(s.conn)
	defer func() {
		s.hub.Unregister(s.conn)
		s.conn.Close()
		logger.Info("Session %s closed", s.id)
	}()

	if err := s.conn.Send(msgWelcome); err != nil {
		logger.Warn("Session %s: failed to send greeting: %v", s.id, err)
		return
	}

	mode, err := s.conn.Recv()
	if err != nil {
		s.logTransportErr("greeting", err)
		return
	}

	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "R":
		s.register()
	case "L":
		s.login(ctx)
	default:
		// The legacy server silently fell through here; we tell the client
		// what went wrong before closing.
		s.conn.Send(msgBadMode)
	}
}

// register handles the registration branch. The session ends afterwards
// regardless of outcome; a registered user logs in on a fresh connection.
func (s *Session) register() {
	username, password, err := s.promptCredentials()
	if err != nil {
		return
	}

	switch err := s.users.Register(username, password); {
	case err == nil:
		logger.Info("Session %s: registered user %q", s.id, username)
		s.conn.Send(msgRegistered)
	case errors.Is(err, auth.ErrDuplicateUser):
		s.conn.Send(msgDuplicateUser)
	default:
		logger.Error("Session %s: registration failed: %v", s.id, err)
		s.conn.Send(msgDuplicateUser)
	}
}

// login handles the login branch and, on success, the authenticated action
// loop.
func (s *Session) login(ctx context.Context) {
	username, password, err := s.promptCredentials()
	if err != nil {
		return
	}

	ok, err := s.users.Verify(username, password)
	if err != nil {
		logger.Error("Session %s: credential check failed: %v", s.id, err)
		s.conn.Send(msgLoginFailed)
		return
	}
	if !ok {
		s.conn.Send(msgLoginFailed)
		return
	}

	progress, err := s.story.Progress()
	if err != nil {
		logger.Error("Session %s: failed to load progress: %v", s.id, err)
		s.conn.Send(msgLoginFailed)
		return
	}

	if err := s.conn.Send(fmt.Sprintf("Login successful! Current Progress:\n\n%s\n", progress)); err != nil {
		return
	}
	logger.Info("Session %s: user %q logged in", s.id, username)
	s.hub.Broadcast(fmt.Sprintf("[%s logs in.]", username))

	s.actionLoop(ctx, username)
}

// actionLoop reads one free-text action per iteration until the client
// disconnects, sends an empty frame, or sends the literal "quit".
func (s *Session) actionLoop(ctx context.Context, username string) {
	for {
		input, err := s.conn.Recv()
		if err != nil {
			s.logTransportErr("action", err)
			return
		}
		if input == "" || strings.TrimSpace(input) == "quit" {
			return
		}

		if !s.gate.TryAcquire() {
			// Rejected action is discarded; the client must resend.
			s.conn.Send(msgBusy)
			continue
		}
		s.performAction(ctx, username, input)
	}
}

// performAction runs the serialized action pipeline while holding the gate.
// The gate is released on every exit path, including generation failure.
func (s *Session) performAction(ctx context.Context, username, input string) {
	defer s.gate.Release()

	s.hub.Broadcast(fmt.Sprintf("[Action taken by %s: %s]", username, input))

	segment, err := s.story.ContinueStory(ctx, input, username)
	if err != nil {
		// The failure is reported as a notice, never appended to the
		// narrative.
		logger.Error("Session %s: story continuation failed: %v", s.id, err)
		s.conn.Send(msgGenFailed)
		return
	}

	s.hub.Broadcast(segment)
	s.hub.Broadcast(msgKeywordsStart)

	if err := s.story.ExtractAndMergeKeywords(ctx, segment); err != nil {
		logger.Warn("Session %s: keyword merge failed: %v", s.id, err)
	}
	s.hub.Broadcast(msgKeywordsDone)
}

// promptCredentials asks for a username and password, one frame each.
func (s *Session) promptCredentials() (string, string, error) {
	if err := s.conn.Send(msgAskUsername); err != nil {
		return "", "", err
	}
	username, err := s.conn.Recv()
	if err != nil {
		s.logTransportErr("username", err)
		return "", "", err
	}

	if err := s.conn.Send(msgAskPassword); err != nil {
		return "", "", err
	}
	password, err := s.conn.Recv()
	if err != nil {
		s.logTransportErr("password", err)
		return "", "", err
	}

	return strings.TrimSpace(username), strings.TrimSpace(password), nil
}

func (s *Session) logTransportErr(stage string, err error) {
	if errors.Is(err, wire.ErrClosed) {
		logger.Info("Session %s: client disconnected during %s", s.id, stage)
	} else {
		logger.Warn("Session %s: transport error during %s: %v", s.id, stage, err)
	}
}
