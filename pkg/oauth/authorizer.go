package oauth

import (
	"context"
	"errors"
	"net/url"

	"github.com/go-logr/logr"
)

// ErrPopupBlocked is returned when the authorization window could not be
// opened at all.
var ErrPopupBlocked = errors.New("authorization popup blocked")

// ErrAuthCancelled is returned when the exchange ends without a result, e.g.
// the user closed the window.
var ErrAuthCancelled = errors.New("authorization cancelled")

// Authorizer drives one external authorization exchange: open the
// authorization URI out of band and block until the single redirect result
// arrives. Implementations own the transport (popup window, local callback
// server, message channel) and its origin checking.
type Authorizer interface {
	Authorize(ctx context.Context, authURI string) (authResponseURL string, err error)
}

// AuthMessage is one message posted back from the authorization window.
type AuthMessage struct {
	Origin          string
	AuthResponseURL string
}

// ChannelAuthorizer implements Authorizer over an abstract message channel.
// Messages from other origins are ignored; the first same-origin message
// carrying an auth response URL resolves the exchange, exactly once.
type ChannelAuthorizer struct {
	open     func(authURI string) error
	origin   string
	messages <-chan AuthMessage
	logger   logr.Logger
}

// NewChannelAuthorizer creates an authorizer that opens windows via open and
// receives results on messages. origin is the only origin accepted.
func NewChannelAuthorizer(open func(authURI string) error, origin string, messages <-chan AuthMessage, logger logr.Logger) *ChannelAuthorizer {
	return &ChannelAuthorizer{
		open:     open,
		origin:   origin,
		messages: messages,
		logger:   logger,
	}
}

// Authorize implements Authorizer.
func (a *ChannelAuthorizer) Authorize(ctx context.Context, authURI string) (string, error) {
	if err := a.open(authURI); err != nil {
		return "", ErrPopupBlocked
	}
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case msg, ok := <-a.messages:
			if !ok {
				return "", ErrAuthCancelled
			}
			if msg.Origin != a.origin {
				a.logger.V(1).Info("Ignoring auth message from foreign origin", "origin", msg.Origin)
				continue
			}
			if msg.AuthResponseURL == "" {
				continue
			}
			return msg.AuthResponseURL, nil
		}
	}
}

// RewriteRedirectURI replaces the redirect_uri query parameter of authURI so
// the provider sends the user back to this client. An unparseable URI is
// returned unchanged.
func RewriteRedirectURI(authURI, redirectURI string, logger logr.Logger) string {
	u, err := url.Parse(authURI)
	if err != nil {
		logger.Error(err, "Failed to update redirect URI", "authUri", authURI)
		return authURI
	}
	q := u.Query()
	q.Set("redirect_uri", redirectURI)
	u.RawQuery = q.Encode()
	return u.String()
}
