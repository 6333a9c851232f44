package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"deepchat/internal/llm"
	"deepchat/internal/model"
	"deepchat/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
)

// SessionStore is the session-table surface the chat service depends on.
// *repository.SessionRepository is the production implementation.
type SessionStore interface {
	Create(session *model.Session) error
	ListByUserID(userID uint) ([]model.Session, error)
	GetByIDAndUserID(sessionID, userID uint) (*model.Session, error)
	Rename(sessionID, userID uint, title string) error
	DeleteByIDAndUserID(sessionID, userID uint) error
}

// MessageStore is the message-table surface the chat service depends on.
// *repository.MessageRepository is the production implementation.
type MessageStore interface {
	ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error)
	DeleteBySessionID(sessionID uint) error
}

// MirrorPublisher enqueues accepted turns for asynchronous persistence.
type MirrorPublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// HistoryCache is the Redis-backed read cache for session histories.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// Forwarder is the gateway capability the chat service depends on.
type Forwarder interface {
	Forward(ctx context.Context, turns []llm.ChatMessage) (*llm.Completion, error)
}

// ChatService owns the session lifecycle and the server-side send flow:
// ownership checks, prompt assembly from stored history, the gateway call,
// and best-effort mirroring of accepted turns.
type ChatService struct {
	sessionRepo  SessionStore
	messageRepo  MessageStore
	gateway      Forwarder
	publisher    MirrorPublisher
	historyCache HistoryCache
	maxContext   int
}

type CreateSessionInput struct {
	UserID uint
	Title  string
}

type SendMessageInput struct {
	UserID    uint
	SessionID uint
	Content   string
}

type SendMessageResult struct {
	Messages []model.Message `json:"messages"`
	Usage    llm.Usage       `json:"usage"`
}

func NewChatService(
	sessionRepo SessionStore,
	messageRepo MessageStore,
	gateway Forwarder,
	publisher MirrorPublisher,
	historyCache HistoryCache,
	maxContext int,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 50
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		gateway:      gateway,
		publisher:    publisher,
		historyCache: historyCache,
		maxContext:   maxContext,
	}
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = model.DefaultSessionTitle
	}

	session := &model.Session{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

func (s *ChatService) GetSession(userID, sessionID uint) (*model.Session, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *ChatService) RenameSession(userID, sessionID uint, title string) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidInput
	}

	if err := s.sessionRepo.Rename(sessionID, userID, title); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

func (s *ChatService) DeleteSession(userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.messageRepo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByIDAndUserID(sessionID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), sessionID)
	}
	return nil
}

// SendMessage runs one request/response cycle for a stored session: verify
// ownership, forward stored history plus the new input, then mirror the
// accepted user and assistant turns in that order. Mirroring is best-effort;
// a publish failure is logged and the completion is still returned.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return nil, ErrInvalidInput
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	turns, err := s.buildTurns(input.SessionID, content)
	if err != nil {
		return nil, err
	}

	completion, err := s.gateway.Forward(ctx, turns)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	userMessage := model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: now,
	}
	assistantMessage := model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      model.RoleAssistant,
		Content:   completion.Content,
		CreatedAt: now,
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.SessionID)
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}
	s.mirror(ctx, userMessage)
	s.mirror(ctx, assistantMessage)

	return &SendMessageResult{
		Messages: []model.Message{userMessage, assistantMessage},
		Usage:    completion.Usage,
	}, nil
}

func (s *ChatService) GetHistory(userID, sessionID uint, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListRecentBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

func (s *ChatService) mirror(ctx context.Context, msg model.Message) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		logrus.Warnf("mirror turn to store failed (session %d): %v", msg.SessionID, err)
	}
}

// buildTurns assembles the gateway payload: the newest maxContext stored
// user/assistant turns in stored order followed by the new user input.
// Stored system rows (tolerated on write, never produced here) are skipped.
func (s *ChatService) buildTurns(sessionID uint, currentUserInput string) ([]llm.ChatMessage, error) {
	recent, err := s.messageRepo.ListRecentBySessionID(sessionID, s.maxContext)
	if err != nil {
		return nil, err
	}

	turns := make([]llm.ChatMessage, 0, len(recent)+1)
	for _, item := range recent {
		if item.Role != model.RoleUser && item.Role != model.RoleAssistant {
			continue
		}
		turns = append(turns, llm.ChatMessage{
			Role:    item.Role,
			Content: item.Content,
		})
	}
	turns = append(turns, llm.ChatMessage{
		Role:    model.RoleUser,
		Content: currentUserInput,
	})
	return turns, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
