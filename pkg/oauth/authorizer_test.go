package oauth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelAuthorizerResolvesOnSameOrigin(t *testing.T) {
	messages := make(chan AuthMessage, 3)
	var opened []string
	a := NewChannelAuthorizer(func(uri string) error {
		opened = append(opened, uri)
		return nil
	}, "https://app.example", messages, logr.Discard())

	// Foreign-origin and empty messages must be skipped, not resolve.
	messages <- AuthMessage{Origin: "https://evil.example", AuthResponseURL: "https://evil.example/cb"}
	messages <- AuthMessage{Origin: "https://app.example", AuthResponseURL: ""}
	messages <- AuthMessage{Origin: "https://app.example", AuthResponseURL: "https://app.example/cb?code=ok"}

	got, err := a.Authorize(context.Background(), "https://issuer.example/auth")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example/cb?code=ok", got)
	assert.Equal(t, []string{"https://issuer.example/auth"}, opened)
}

func TestChannelAuthorizerPopupBlocked(t *testing.T) {
	a := NewChannelAuthorizer(func(string) error {
		return fmt.Errorf("window.open returned nil")
	}, "https://app.example", nil, logr.Discard())

	_, err := a.Authorize(context.Background(), "https://issuer.example/auth")
	assert.ErrorIs(t, err, ErrPopupBlocked)
}

func TestChannelAuthorizerCancelledOnClosedChannel(t *testing.T) {
	messages := make(chan AuthMessage)
	close(messages)
	a := NewChannelAuthorizer(func(string) error { return nil }, "https://app.example", messages, logr.Discard())

	_, err := a.Authorize(context.Background(), "https://issuer.example/auth")
	assert.ErrorIs(t, err, ErrAuthCancelled)
}

func TestChannelAuthorizerContextCancelled(t *testing.T) {
	messages := make(chan AuthMessage)
	a := NewChannelAuthorizer(func(string) error { return nil }, "https://app.example", messages, logr.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := a.Authorize(ctx, "https://issuer.example/auth")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRewriteRedirectURI(t *testing.T) {
	tests := []struct {
		name    string
		authURI string
		want    string
	}{
		{
			name:    "replaces existing parameter",
			authURI: "https://issuer.example/auth?client_id=c1&redirect_uri=https%3A%2F%2Fold.example",
			want:    "https://issuer.example/auth?client_id=c1&redirect_uri=https%3A%2F%2Fapp.example",
		},
		{
			name:    "adds missing parameter",
			authURI: "https://issuer.example/auth?client_id=c1",
			want:    "https://issuer.example/auth?client_id=c1&redirect_uri=https%3A%2F%2Fapp.example",
		},
		{
			name:    "unparseable uri returned unchanged",
			authURI: "https://issuer.example/%zz/auth",
			want:    "https://issuer.example/%zz/auth",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteRedirectURI(tt.authURI, "https://app.example", logr.Discard())
			assert.Equal(t, tt.want, got)
		})
	}
}
