package readcast

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"readcast/internal/agents"
	"readcast/internal/logger"
	"readcast/internal/session"
)

type AskRequest struct {
	UserID     string
	DocumentID int64
	SessionID  string
	Question   string
}

type AskResult struct {
	SessionID string `json:"sessionId"`
	Answer    string `json:"answer"`
}

// Ask answers a question about a stored document within a conversation
// session. An empty session id starts a new session.
func (s *Service) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	return s.ask(ctx, req, nil)
}

// AskStream is Ask with the answer delivered through onChunk as it is produced.
func (s *Service) AskStream(ctx context.Context, req AskRequest, onChunk func(string)) (AskResult, error) {
	if onChunk == nil {
		onChunk = func(string) {}
	}
	return s.ask(ctx, req, onChunk)
}

func (s *Service) ask(ctx context.Context, req AskRequest, onChunk func(string)) (AskResult, error) {
	if err := requireUser(req.UserID); err != nil {
		return AskResult{}, err
	}
	if strings.TrimSpace(req.Question) == "" {
		return AskResult{}, invalid("question is required")
	}
	rec, err := s.docs.GetForUser(ctx, req.DocumentID, req.UserID)
	if err != nil {
		return AskResult{}, storeErr(err, "document")
	}
	if rec.Document == nil {
		return AskResult{}, notFound("document content")
	}
	sid := req.SessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	key := sessionKey(req.UserID, sid)
	history, err := s.sessions.History(ctx, key)
	if err != nil {
		return AskResult{}, fmt.Errorf("load session history: %w", err)
	}

	q := agents.Question{Document: *rec.Document, Language: rec.Language, History: history, Text: req.Question}
	var answer string
	if onChunk != nil {
		answer, err = s.tutor.Stream(ctx, q, onChunk)
	} else {
		answer, err = s.tutor.Answer(ctx, q)
	}
	if err != nil {
		return AskResult{}, upstream(err)
	}

	now := s.now()
	if err := s.sessions.Append(ctx, key,
		session.Turn{Role: session.RoleUser, Content: req.Question, At: now},
		session.Turn{Role: session.RoleAssistant, Content: answer, At: now},
	); err != nil {
		s.log.Ctx(ctx).Warn("session append failed", logger.KeySessionID, sid, "error", err)
	}
	return AskResult{SessionID: sid, Answer: answer}, nil
}

func (s *Service) ClearSession(ctx context.Context, userID, sessionID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if sessionID == "" {
		return invalid("session id is required")
	}
	if err := s.sessions.Clear(ctx, sessionKey(userID, sessionID)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// sessionKey scopes session ids to their user.
func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}
