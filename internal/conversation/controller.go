// Package conversation implements the client-side view of a chat: the
// visible turn list for the active session, the optimistic send cycle with
// rollback, and the synthetic greeting that opens every fresh session.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"deepchat/internal/llm"
)

// Greeting opens every fresh session. It is synthesized locally and is
// never forwarded to the gateway or mirrored into the store.
const Greeting = "Hello! I'm your AI assistant. How can I help you today?"

var (
	// ErrEmptyInput rejects empty or whitespace-only sends; the visible
	// list is left untouched.
	ErrEmptyInput = errors.New("input is empty")
	// ErrBusy rejects a send, switch, new chat or clear while another send
	// is in flight. There is no queueing and no cancellation of the pending
	// request.
	ErrBusy = errors.New("a send is already in progress")
)

// Turn is one visible role-tagged message unit.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Gateway produces the assistant's reply for an ordered turn sequence.
type Gateway interface {
	Send(ctx context.Context, turns []llm.ChatMessage) (string, error)
}

// Mirror copies accepted turns into persistent storage.
type Mirror interface {
	Mirror(ctx context.Context, sessionID uint, turns []Turn) error
}

// Controller drives the per-session state machine: Idle accepts sends and
// session switches, Sending blocks both until the gateway call resolves. At
// most one gateway call is outstanding at a time, and only the send that
// started it may touch the visible list while it runs.
type Controller struct {
	gateway Gateway
	mirror  Mirror

	mu        sync.Mutex
	sessionID uint
	visible   []Turn
	sending   bool
	lastErr   error
}

func NewController(gateway Gateway, mirror Mirror) *Controller {
	return &Controller{
		gateway: gateway,
		mirror:  mirror,
		visible: []Turn{greetingTurn()},
	}
}

func greetingTurn() Turn {
	return Turn{Role: "assistant", Content: Greeting}
}

// Visible returns a copy of the visible turn list, greeting first.
func (c *Controller) Visible() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.visible))
	copy(out, c.visible)
	return out
}

func (c *Controller) SessionID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Err reports the error surfaced by the last failed send, cleared by the
// next successful send, switch, new chat or clear.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Send runs one optimistic request cycle: the user turn becomes visible
// immediately, the full visible history minus the greeting goes to the
// gateway, and on failure the optimistic turn is removed again. On success
// both accepted turns are mirrored best-effort.
func (c *Controller) Send(ctx context.Context, input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.sending = true
	userTurn := Turn{Role: "user", Content: trimmed}
	c.visible = append(c.visible, userTurn)
	outbound := c.forwardableLocked()
	sessionID := c.sessionID
	c.mu.Unlock()

	reply, err := c.gateway.Send(ctx, outbound)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false

	if err != nil {
		// Roll back the optimistic user turn; nothing is mirrored.
		c.visible = c.visible[:len(c.visible)-1]
		c.lastErr = err
		return err
	}

	assistantTurn := Turn{Role: "assistant", Content: reply}
	c.visible = append(c.visible, assistantTurn)
	c.lastErr = nil

	if c.mirror != nil && sessionID != 0 {
		if mirrorErr := c.mirror.Mirror(ctx, sessionID, []Turn{userTurn, assistantTurn}); mirrorErr != nil {
			logrus.Warnf("mirror turns for session %d failed: %v", sessionID, mirrorErr)
		}
	}
	return nil
}

// Switch replaces the visible list with the greeting followed by the target
// session's stored turns in stored order, and clears any error state. A
// pending send owns the visible list, so switching is only admitted while
// idle; callers get ErrBusy otherwise and the list is left untouched.
func (c *Controller) Switch(sessionID uint, stored []Turn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending {
		return ErrBusy
	}
	c.sessionID = sessionID
	c.visible = append([]Turn{greetingTurn()}, stored...)
	c.lastErr = nil
	return nil
}

// NewChat resets to a fresh unsaved conversation. Rejected with ErrBusy
// while a send is in flight.
func (c *Controller) NewChat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending {
		return ErrBusy
	}
	c.sessionID = 0
	c.visible = []Turn{greetingTurn()}
	c.lastErr = nil
	return nil
}

// Clear resets the visible list to the greeting without touching stored
// data or the active session binding. Rejected with ErrBusy while a send is
// in flight.
func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending {
		return ErrBusy
	}
	c.visible = []Turn{greetingTurn()}
	c.lastErr = nil
	return nil
}

// forwardableLocked converts the visible list minus the leading greeting
// into the gateway payload. Callers hold c.mu.
func (c *Controller) forwardableLocked() []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(c.visible)-1)
	for _, t := range c.visible[1:] {
		out = append(out, llm.ChatMessage{Role: t.Role, Content: t.Content})
	}
	return out
}
