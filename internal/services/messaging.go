package services

import (
	"context"
	"sync"

	"github.com/runmateapp/runmate-client/internal/gateway"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
)

// MessagingService owns chat threads and their messages. Threads are
// normally created as a side effect of invite acceptance; StartChat exists
// for that path and for manual re-creation.
type MessagingService struct {
	api gateway.Caller
	id  Identity
	log logging.Logger

	mu       sync.Mutex
	threads  []models.ChatThread
	messages map[string][]models.ChatMessage
	msgGen   map[string]uint64
	load     bool
	err      string
}

// NewMessagingService constructs the service.
func NewMessagingService(api gateway.Caller, id Identity, log logging.Logger) *MessagingService {
	return &MessagingService{
		api:      api,
		id:       id,
		log:      log,
		messages: map[string][]models.ChatMessage{},
		msgGen:   map[string]uint64{},
	}
}

// Threads returns a copy of the cached threads.
func (s *MessagingService) Threads() []models.ChatThread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatThread, len(s.threads))
	copy(out, s.threads)
	return out
}

// Messages returns the cached messages of one thread.
func (s *MessagingService) Messages(threadID string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached := s.messages[threadID]
	out := make([]models.ChatMessage, len(cached))
	copy(out, cached)
	return out
}

// Loading reports whether an action is in flight.
func (s *MessagingService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load
}

// LastError returns the message of the last failed action.
func (s *MessagingService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *MessagingService) begin() {
	s.mu.Lock()
	s.load = true
	s.err = ""
	s.mu.Unlock()
}

func (s *MessagingService) finish(err error) error {
	s.mu.Lock()
	s.load = false
	if err != nil {
		s.err = err.Error()
	}
	s.mu.Unlock()
	return err
}

// StartChat creates (or re-resolves) the thread between two users and
// returns its id.
func (s *MessagingService) StartChat(ctx context.Context, userA, userB string) (string, error) {
	s.begin()
	var resp struct {
		Thread string `json:"thread"`
	}
	if err := s.api.CallConceptAction(ctx, "Messaging", "startChat",
		map[string]string{"userA": userA, "userB": userB}, &resp); err != nil {
		return "", s.finish(err)
	}
	return resp.Thread, s.finish(nil)
}

// FetchThreads replaces the thread cache with the server's view.
func (s *MessagingService) FetchThreads(ctx context.Context) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}

	var result []models.ChatThread
	if err := s.api.CallConceptAction(ctx, "Messaging", "_getThreadsForUser",
		map[string]string{"user": userID}, &result); err != nil {
		return s.finish(err)
	}

	s.mu.Lock()
	s.threads = result
	s.mu.Unlock()
	return s.finish(nil)
}

// FetchMessages replaces the cached messages of one thread.
func (s *MessagingService) FetchMessages(ctx context.Context, threadID string) ([]models.ChatMessage, error) {
	s.begin()

	s.mu.Lock()
	s.msgGen[threadID]++
	gen := s.msgGen[threadID]
	s.mu.Unlock()

	var result []models.ChatMessage
	if err := s.api.CallConceptAction(ctx, "Messaging", "_getMessagesForThread",
		map[string]string{"thread": threadID}, &result); err != nil {
		return nil, s.finish(err)
	}

	s.mu.Lock()
	if gen == s.msgGen[threadID] {
		s.messages[threadID] = result
	}
	s.mu.Unlock()
	return result, s.finish(nil)
}

// SendMessage posts a message to a thread, then refetches the thread so the
// cache reflects server-side ordering.
func (s *MessagingService) SendMessage(ctx context.Context, threadID, text string) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}

	if err := s.api.CallConceptAction(ctx, "Messaging", "sendMessage",
		map[string]string{"thread": threadID, "sender": userID, "text": text}, nil); err != nil {
		return s.finish(err)
	}

	if _, err := s.FetchMessages(ctx, threadID); err != nil {
		s.log.Warn(ctx, "message refresh after send failed", "thread", threadID, "error", err)
	}
	return s.finish(nil)
}
