package transcript

import "sync"

// Builder owns the ordered message list and enforces its structural
// invariants: at most one loading placeholder exists and it is always the
// last element; arbitrary insertions go immediately before it so the loading
// indicator stays trailing.
//
// In-flight artifact and OAuth resolutions land on goroutines of their own,
// so every mutation is mutex-guarded.
type Builder struct {
	mu       sync.Mutex
	messages []*Message
	thinking bool
}

// NewBuilder creates an empty transcript.
func NewBuilder() *Builder {
	return &Builder{}
}

// Append adds m at the tail, after any loading placeholder. Used for user
// messages pushed before a turn starts.
func (b *Builder) Append(m *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, m)
}

// InsertBeforeLoading splices m immediately before a trailing loading
// placeholder, or appends when none is present.
func (b *Builder) InsertBeforeLoading(m *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.messages)
	if n > 0 && b.messages[n-1].IsLoading {
		b.messages = append(b.messages[:n-1], m, b.messages[n-1])
		return
	}
	b.messages = append(b.messages, m)
}

// EnsureLoading appends a loading placeholder unless one is already trailing.
func (b *Builder) EnsureLoading() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.messages); n > 0 && b.messages[n-1].IsLoading {
		return
	}
	b.messages = append(b.messages, &Message{Role: RoleBot, IsLoading: true})
}

// RemoveLoading removes a trailing loading placeholder, if present.
func (b *Builder) RemoveLoading() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.messages); n > 0 && b.messages[n-1].IsLoading {
		b.messages = b.messages[:n-1]
	}
}

// ReplacePendingArtifact swaps the placeholder carrying artifactID for m.
// The placeholder is located by id, never by a captured index: other
// insertions and removals may have happened since it was created. Returns
// false when no matching placeholder remains, in which case the caller must
// drop the resolution.
func (b *Builder) ReplacePendingArtifact(artifactID string, m *Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, msg := range b.messages {
		if msg.PendingArtifact && msg.PendingArtifactID == artifactID {
			b.messages[i] = m
			return true
		}
	}
	return false
}

// Remove deletes the message at position i.
func (b *Builder) Remove(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.messages) {
		return
	}
	b.messages = append(b.messages[:i], b.messages[i+1:]...)
}

// Len returns the number of messages.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// At returns the message at position i, or nil when out of range.
func (b *Builder) At(i int) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.messages) {
		return nil
	}
	return b.messages[i]
}

// Messages returns a snapshot of the current message order. The messages
// themselves are shared; the slice is not.
func (b *Builder) Messages() []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// SetThinking records whether the model is currently producing thought
// tokens. Stream completion and the first non-thought content both force it
// back to idle.
func (b *Builder) SetThinking(thinking bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.thinking = thinking
}

// Thinking reports the current thinking state.
func (b *Builder) Thinking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.thinking
}

// Reset drops every message and returns the thinking signal to idle.
// Resolutions that land after a reset find no placeholder and are dropped.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
	b.thinking = false
}
