package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// ErrInputTerminated is returned by a surface whose input stream ended
// before the operator answered (closed stdin, dismissed prompt).
var ErrInputTerminated = errors.New("input terminated")

// ErrPromptTimedOut is returned by a surface whose own countdown expired
// before the operator answered.
var ErrPromptTimedOut = errors.New("prompt timed out")

// Prompt describes one escalation awaiting operator approval.
type Prompt struct {
	// TaskID is the task requesting escalation.
	TaskID string
	// Tier is the tier the request wants to escalate to.
	Tier models.Tier
	// Timeout is how long the operator has to answer.
	Timeout time.Duration
}

// Response is the operator's answer to a prompt.
type Response struct {
	// Approved is the operator's decision.
	Approved bool
	// Note is an optional message from the operator.
	Note string
}

// Surface solicits approval from an interactive operator. Ask blocks until
// the operator answers, the prompt is dismissed, or ctx ends; it must
// return once ctx is done.
type Surface interface {
	Ask(ctx context.Context, prompt Prompt) (Response, error)
}

// ChannelSurface bridges the gate to an asynchronous operator UI. The gate
// side calls Ask; the UI side receives prompts on Requests and answers with
// Respond. One prompt is in flight at a time per Ask call.
type ChannelSurface struct {
	requestCh chan PendingPrompt

	mu      sync.Mutex
	pending map[string]chan Response
}

// PendingPrompt pairs a prompt with the ID used to answer it.
type PendingPrompt struct {
	// ID identifies this prompt for Respond.
	ID string
	// Prompt is the escalation awaiting approval.
	Prompt Prompt
}

// NewChannelSurface creates a surface with a small request buffer so a slow
// UI never blocks the gate's bounded wait.
func NewChannelSurface() *ChannelSurface {
	return &ChannelSurface{
		requestCh: make(chan PendingPrompt, 8),
		pending:   make(map[string]chan Response),
	}
}

// Requests returns the channel the UI listens on for prompts.
func (s *ChannelSurface) Requests() <-chan PendingPrompt {
	return s.requestCh
}

// Ask sends the prompt to the UI and waits for the answer or ctx.
func (s *ChannelSurface) Ask(ctx context.Context, prompt Prompt) (Response, error) {
	responseCh := make(chan Response, 1)
	id := prompt.TaskID + "/" + string(prompt.Tier.ID)

	s.mu.Lock()
	s.pending[id] = responseCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	select {
	case s.requestCh <- PendingPrompt{ID: id, Prompt: prompt}:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-responseCh:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Respond answers a pending prompt. Responses for unknown or already
// answered prompts are dropped.
func (s *ChannelSurface) Respond(id string, resp Response) {
	s.mu.Lock()
	ch, exists := s.pending[id]
	s.mu.Unlock()

	if exists {
		select {
		case ch <- resp:
		default:
			// Already answered.
		}
	}
}
