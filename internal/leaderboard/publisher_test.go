package leaderboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	nextID    int
	sent      []string
	edits     []string
	pinned    []int
	editErr   error
	sendErr   error
	lastDest  int64
	lastMsgID int
}

func (f *fakeTransport) Send(_ context.Context, dest int64, text string) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, text)
	f.lastDest = dest
	return f.nextID, nil
}

func (f *fakeTransport) Edit(_ context.Context, dest int64, messageID int, text string) error {
	f.lastDest = dest
	f.lastMsgID = messageID
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeTransport) Pin(_ context.Context, _ int64, messageID int) error {
	f.pinned = append(f.pinned, messageID)
	return nil
}

func TestPublishCreatesOnce(t *testing.T) {
	tr := &fakeTransport{}
	p := NewPublisher(tr)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, -100, "v1"))
	require.NoError(t, p.Publish(ctx, -100, "v2"))
	require.NoError(t, p.Publish(ctx, -100, "v3"))

	// One message created, later content goes through edits.
	assert.Equal(t, []string{"v1"}, tr.sent)
	assert.Equal(t, []string{"v2", "v3"}, tr.edits)
	assert.Equal(t, 1, p.MessageID(-100))
}

func TestPublishNotModifiedIsBenign(t *testing.T) {
	tr := &fakeTransport{}
	p := NewPublisher(tr)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, -100, "same"))
	tr.editErr = ErrNotModified
	require.NoError(t, p.Publish(ctx, -100, "same"))
	require.NoError(t, p.Publish(ctx, -100, "same"))

	// Still published with the original message.
	assert.Equal(t, 1, p.MessageID(-100))
	assert.Len(t, tr.sent, 1)
}

func TestPublishRecreatesAfterNotFound(t *testing.T) {
	tr := &fakeTransport{}
	p := NewPublisher(tr)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, -100, "v1"))

	// Message deleted externally.
	tr.editErr = ErrNotFound
	require.NoError(t, p.Publish(ctx, -100, "v2"))
	assert.Equal(t, 0, p.MessageID(-100))

	// Next tick creates a fresh message instead of editing.
	tr.editErr = nil
	require.NoError(t, p.Publish(ctx, -100, "v3"))
	assert.Equal(t, []string{"v1", "v3"}, tr.sent)
	assert.Equal(t, 2, p.MessageID(-100))
}

func TestPublishPropagatesHardErrors(t *testing.T) {
	tr := &fakeTransport{}
	p := NewPublisher(tr)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, -100, "v1"))
	tr.editErr = assert.AnError
	require.Error(t, p.Publish(ctx, -100, "v2"))
	// State is kept, next tick retries the edit.
	assert.Equal(t, 1, p.MessageID(-100))
}

func TestAdoptMessage(t *testing.T) {
	tr := &fakeTransport{nextID: 41}
	p := NewPublisher(tr)
	ctx := context.Background()

	p.AdoptMessage(-100, 7)
	require.NoError(t, p.Publish(ctx, -100, "v1"))

	assert.Empty(t, tr.sent)
	assert.Equal(t, 7, tr.lastMsgID)
}

func TestPublishAndPin(t *testing.T) {
	tr := &fakeTransport{}
	p := NewPublisher(tr)
	ctx := context.Background()

	require.NoError(t, p.PublishAndPin(ctx, -100, "v1"))
	assert.Equal(t, []int{1}, tr.pinned)

	// Pinning again pins the same live message.
	require.NoError(t, p.PublishAndPin(ctx, -100, "v2"))
	assert.Equal(t, []int{1, 1}, tr.pinned)
}

func TestDestinationsIndependent(t *testing.T) {
	tr := &fakeTransport{}
	p := NewPublisher(tr)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, -1, "a"))
	require.NoError(t, p.Publish(ctx, -2, "b"))

	assert.Equal(t, 1, p.MessageID(-1))
	assert.Equal(t, 2, p.MessageID(-2))
}
