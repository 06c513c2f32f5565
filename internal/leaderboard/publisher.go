package leaderboard

import (
	"context"
	"errors"
	"sync"

	"spyton-bot/internal/infra/log"

	"go.uber.org/zap"
)

// Sentinel errors a Transport maps the messaging platform's failures onto.
var (
	// ErrNotFound means the message no longer exists (deleted externally).
	ErrNotFound = errors.New("message not found")
	// ErrNotModified means the edit content matched the current content.
	ErrNotModified = errors.New("message not modified")
)

// Transport is the minimal messaging surface the publisher depends on.
type Transport interface {
	Send(ctx context.Context, destination int64, text string) (messageID int, err error)
	Edit(ctx context.Context, destination int64, messageID int, text string) error
	Pin(ctx context.Context, destination int64, messageID int) error
}

type destState struct {
	published bool
	messageID int
}

// Publisher owns the single leaderboard message identity per destination.
// First publish creates the message; every later tick edits it in place.
// A deleted message resets the destination so the next tick recreates it.
type Publisher struct {
	transport Transport

	mu     sync.Mutex
	states map[int64]*destState
}

func NewPublisher(transport Transport) *Publisher {
	return &Publisher{
		transport: transport,
		states:    make(map[int64]*destState),
	}
}

// AdoptMessage reuses a message created by a previous process so restarts do
// not leave an orphaned leaderboard behind.
func (p *Publisher) AdoptMessage(destination int64, messageID int) {
	if messageID == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[destination] = &destState{published: true, messageID: messageID}
}

// MessageID returns the live message id for the destination, 0 when
// unpublished.
func (p *Publisher) MessageID(destination int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.states[destination]; ok && st.published {
		return st.messageID
	}
	return 0
}

// Publish reconciles the destination's message with the given content.
// Unpublished destinations get a fresh message; published ones an in-place
// edit. Unchanged content is a no-op, a vanished message resets state so the
// next call recreates it.
func (p *Publisher) Publish(ctx context.Context, destination int64, content string) error {
	p.mu.Lock()
	st, ok := p.states[destination]
	if !ok {
		st = &destState{}
		p.states[destination] = st
	}
	published, messageID := st.published, st.messageID
	p.mu.Unlock()

	if !published {
		return p.create(ctx, destination, content)
	}

	err := p.transport.Edit(ctx, destination, messageID, content)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotModified):
		return nil
	case errors.Is(err, ErrNotFound):
		log.LogWarn("leaderboard message vanished, will recreate",
			zap.Int64("destination", destination), zap.Int("message_id", messageID))
		p.mu.Lock()
		st.published = false
		st.messageID = 0
		p.mu.Unlock()
		return nil
	default:
		return err
	}
}

// PublishAndPin publishes the content and pins the resulting message.
func (p *Publisher) PublishAndPin(ctx context.Context, destination int64, content string) error {
	if err := p.Publish(ctx, destination, content); err != nil {
		return err
	}

	messageID := p.MessageID(destination)
	if messageID == 0 {
		// Publish reset state after a vanished message; create now so the
		// pin applies to a live message.
		if err := p.create(ctx, destination, content); err != nil {
			return err
		}
		messageID = p.MessageID(destination)
	}
	return p.transport.Pin(ctx, destination, messageID)
}

func (p *Publisher) create(ctx context.Context, destination int64, content string) error {
	messageID, err := p.transport.Send(ctx, destination, content)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.states[destination] = &destState{published: true, messageID: messageID}
	p.mu.Unlock()

	log.LogSuccess("leaderboard message created",
		zap.Int64("destination", destination), zap.Int("message_id", messageID))
	return nil
}
