package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kagent-dev/kagent/go-chat/pkg/eval"
)

func evalCasePath(appName, evalSetID, evalID string) string {
	return fmt.Sprintf("/apps/%s/eval_sets/%s/evals/%s",
		url.PathEscape(appName), url.PathEscape(evalSetID), url.PathEscape(evalID))
}

// GetEvalCase loads one eval case from an eval set.
func (c *Client) GetEvalCase(ctx context.Context, appName, evalSetID, evalID string) (*eval.Case, error) {
	var evalCase eval.Case
	if err := c.getJSON(ctx, evalCasePath(appName, evalSetID, evalID), &evalCase); err != nil {
		return nil, fmt.Errorf("failed to get eval case %s: %w", evalID, err)
	}
	return &evalCase, nil
}

// UpdateEvalCase persists an edited eval case.
func (c *Client) UpdateEvalCase(ctx context.Context, appName, evalSetID string, evalCase *eval.Case) error {
	if err := c.putJSON(ctx, evalCasePath(appName, evalSetID, evalCase.EvalID), evalCase, nil); err != nil {
		return fmt.Errorf("failed to update eval case %s: %w", evalCase.EvalID, err)
	}
	return nil
}
