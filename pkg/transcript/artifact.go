package transcript

import (
	"sync"

	"github.com/kagent-dev/kagent/go-chat/pkg/part"
)

// Artifact is a resolved, versioned binary object referenced from an event's
// artifact delta. Immutable once created.
type Artifact struct {
	ID        string
	VersionID string
	Data      string
	MIMEType  string
	MediaType part.MediaType
}

// ArtifactSet is the append-only collection of artifacts resolved during a
// session.
type ArtifactSet struct {
	mu        sync.Mutex
	artifacts []Artifact
}

// NewArtifactSet creates an empty set.
func NewArtifactSet() *ArtifactSet {
	return &ArtifactSet{}
}

// Add appends a resolved artifact.
func (s *ArtifactSet) Add(a Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
}

// All returns a snapshot in resolution order.
func (s *ArtifactSet) All() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Len returns the number of resolved artifacts.
func (s *ArtifactSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}
