package client

import (
	"context"
	"fmt"
	"net/url"
)

// artifactVersionResponse is the wire shape of an artifact version. Data is
// kept as the raw base64 string: backends emit the URL-safe alphabet without
// padding, so decoding is deferred to the part codec.
type artifactVersionResponse struct {
	InlineData struct {
		DisplayName string `json:"displayName,omitempty"`
		Data        string `json:"data"`
		MIMEType    string `json:"mimeType"`
	} `json:"inlineData"`
}

// GetArtifactVersion fetches one artifact version. Implements the fetcher
// contract of the artifact resolver.
func (c *Client) GetArtifactVersion(ctx context.Context, userID, appName, sessionID, artifactID, versionID string) (string, string, error) {
	path := fmt.Sprintf("/apps/%s/users/%s/sessions/%s/artifacts/%s/versions/%s",
		url.PathEscape(appName), url.PathEscape(userID), url.PathEscape(sessionID),
		url.PathEscape(artifactID), url.PathEscape(versionID))

	var resp artifactVersionResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", "", fmt.Errorf("failed to fetch artifact %s@%s: %w", artifactID, versionID, err)
	}
	return resp.InlineData.Data, resp.InlineData.MIMEType, nil
}
