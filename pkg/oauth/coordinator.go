package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"google.golang.org/genai"

	"github.com/kagent-dev/kagent/go-chat/pkg/client"
	"github.com/kagent-dev/kagent/go-chat/pkg/event"
	"github.com/kagent-dev/kagent/go-chat/pkg/session"
)

// CoordinatorState is the long-running action state machine.
type CoordinatorState int

const (
	// StateIdle: no long-running call is pending.
	StateIdle CoordinatorState = iota
	// StatePendingApproval: calls are queued; the head needs manual or
	// dialog-driven resolution.
	StatePendingApproval
	// StateAwaitingExternalAuth: an OAuth exchange for the head call is in
	// flight.
	StateAwaitingExternalAuth
	// StateResolved: the head call's resumption request has been answered
	// and its events spliced; transient before returning to idle.
	StateResolved
)

func (s CoordinatorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingApproval:
		return "pendingApproval"
	case StateAwaitingExternalAuth:
		return "awaitingExternalAuth"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Runner submits a resumption run request and returns the resulting events.
// *client.Client satisfies it.
type Runner interface {
	Run(ctx context.Context, req *client.RunRequest) ([]event.Event, error)
}

// Splice feeds resumption events back into the transcript exactly as the
// live stream would.
type Splice func(ctx context.Context, events []event.Event)

// pendingCall is one function call awaiting external resolution.
type pendingCall struct {
	call    *genai.FunctionCall
	eventID string
}

// Coordinator detects tool calls that require out-of-band authorization,
// drives the OAuth exchange for them, and resumes the run with the result.
// Calls are processed strictly in arrival order; at most one OAuth exchange
// is active at a time. A failed or cancelled exchange leaves the call queued
// without retry.
type Coordinator struct {
	authorizer  Authorizer
	runner      Runner
	state       *session.State
	splice      Splice
	redirectURI string
	logger      logr.Logger

	mu       sync.Mutex
	queue    []pendingCall
	st       CoordinatorState
	inFlight bool

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator. redirectURI is this client's own base
// URL, substituted into authorization URIs.
func NewCoordinator(authorizer Authorizer, runner Runner, state *session.State, splice Splice, redirectURI string, logger logr.Logger) *Coordinator {
	return &Coordinator{
		authorizer:  authorizer,
		runner:      runner,
		state:       state,
		splice:      splice,
		redirectURI: redirectURI,
		logger:      logger,
		st:          StateIdle,
	}
}

// State returns the current machine state.
func (c *Coordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Pending returns the number of queued calls.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Observe enqueues every function call of ev named by its long-running tool
// ids, then starts the head's OAuth exchange when one is required and none
// is already active. Non-OAuth calls stay queued for dialog-driven
// resolution without blocking the coordinator.
func (c *Coordinator) Observe(ctx context.Context, ev *event.Event) {
	calls := ev.FunctionCallsByID(ev.LongRunningToolIDs)
	if len(calls) == 0 {
		return
	}

	c.state.SetFunctionCallEventID(ev.ID)

	c.mu.Lock()
	for _, call := range calls {
		c.queue = append(c.queue, pendingCall{call: call, eventID: ev.ID})
	}
	c.st = StatePendingApproval
	c.mu.Unlock()

	c.maybeStartExchange(ctx)
}

// maybeStartExchange inspects the queue head and, when it carries an OAuth
// credential and no exchange is running, starts one.
func (c *Coordinator) maybeStartExchange(ctx context.Context) {
	c.mu.Lock()
	if c.inFlight || len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	head := c.queue[0]
	authURI, ok := authURIFromArgs(head.call.Args)
	if !ok {
		// Head is not an OAuth call; it waits for external resolution.
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.st = StateAwaitingExternalAuth
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runExchange(ctx, head, authURI)
	}()
}

func (c *Coordinator) runExchange(ctx context.Context, head pendingCall, authURI string) {
	updatedURI := RewriteRedirectURI(authURI, c.redirectURI, c.logger)

	authResponseURL, err := c.authorizer.Authorize(ctx, updatedURI)
	if err != nil {
		// The call stays queued; no automatic retry.
		c.logger.Error(err, "OAuth exchange failed", "functionCall", head.call.Name)
		c.mu.Lock()
		c.inFlight = false
		c.st = StatePendingApproval
		c.mu.Unlock()
		return
	}

	events, err := c.resume(ctx, head, authResponseURL)
	if err != nil {
		c.logger.Error(err, "Failed to resume run after OAuth", "functionCall", head.call.Name)
		c.mu.Lock()
		c.inFlight = false
		c.st = StatePendingApproval
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.queue = c.queue[1:]
	c.st = StateResolved
	c.inFlight = false
	if len(c.queue) == 0 {
		c.st = StateIdle
	}
	c.mu.Unlock()

	c.splice(ctx, events)

	// Subsequent pending calls run strictly after this one resolved.
	c.maybeStartExchange(ctx)
}

// resume builds the resumption request: the original call's id and name plus
// the augmented credential, sent as the sole function-response part of a
// follow-up run carrying the function-call event id.
func (c *Coordinator) resume(ctx context.Context, head pendingCall, authResponseURL string) ([]event.Event, error) {
	authConfig, err := augmentAuthConfig(head.call.Args, authResponseURL, c.redirectURI)
	if err != nil {
		return nil, err
	}

	req := &client.RunRequest{
		AppName:   c.state.AppName(),
		UserID:    c.state.UserID(),
		SessionID: c.state.SessionID(),
		NewMessage: &genai.Content{
			Role: "user",
			Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					ID:       head.call.ID,
					Name:     head.call.Name,
					Response: authConfig,
				},
			}},
		},
		FunctionCallEventID: head.eventID,
	}
	return c.runner.Run(ctx, req)
}

// Wait blocks until any in-flight exchange has finished. Test helper.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// authURIFromArgs digs the OAuth authorization URI out of the call's
// authConfig.exchangedAuthCredential.oauth2 argument, when present.
func authURIFromArgs(args map[string]any) (string, bool) {
	oauth2, ok := oauth2Config(args)
	if !ok {
		return "", false
	}
	authURI, ok := oauth2["authUri"].(string)
	return authURI, ok && authURI != ""
}

func oauth2Config(args map[string]any) (map[string]any, bool) {
	authConfig, ok := args["authConfig"].(map[string]any)
	if !ok {
		return nil, false
	}
	cred, ok := authConfig["exchangedAuthCredential"].(map[string]any)
	if !ok {
		return nil, false
	}
	oauth2, ok := cred["oauth2"].(map[string]any)
	return oauth2, ok
}

// augmentAuthConfig deep-copies the call's authConfig and fills in the auth
// response and redirect URIs for the backend to complete the exchange.
func augmentAuthConfig(args map[string]any, authResponseURL, redirectURI string) (map[string]any, error) {
	original, ok := args["authConfig"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("function call has no authConfig argument")
	}
	data, err := json.Marshal(original)
	if err != nil {
		return nil, fmt.Errorf("failed to copy authConfig: %w", err)
	}
	var authConfig map[string]any
	if err := json.Unmarshal(data, &authConfig); err != nil {
		return nil, fmt.Errorf("failed to copy authConfig: %w", err)
	}
	cred, ok := authConfig["exchangedAuthCredential"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("authConfig has no exchanged credential")
	}
	oauth2, ok := cred["oauth2"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("exchanged credential has no oauth2 config")
	}
	oauth2["authResponseUri"] = authResponseURL
	oauth2["redirectUri"] = redirectURI
	return authConfig, nil
}
