package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionsUnmarshalCamelCase(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"id":"e1","actions":{"artifactDelta":{"doc1":"v1"}}}`), &ev)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"doc1": "v1"}, ev.ArtifactDelta())
}

func TestActionsUnmarshalSnakeCase(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"id":"e1","actions":{"artifact_delta":{"doc1":"v2"}}}`), &ev)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"doc1": "v2"}, ev.ArtifactDelta())
}

func TestActionsCamelCaseWins(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"id":"e1","actions":{"artifactDelta":{"a":"1"},"artifact_delta":{"b":"2"}}}`), &ev)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, ev.ArtifactDelta())
}

func TestRenderedContent(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"id":"e1","groundingMetadata":{"searchEntryPoint":{"renderedContent":"<div/>"}}}`), &ev)
	require.NoError(t, err)
	assert.Equal(t, "<div/>", ev.RenderedContent())

	assert.Empty(t, (&Event{}).RenderedContent())
}

func TestFunctionCallsByID(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{
		"id": "e1",
		"longRunningToolIds": ["fc2"],
		"content": {"parts": [
			{"functionCall": {"id": "fc1", "name": "first"}},
			{"functionCall": {"id": "fc2", "name": "second"}},
			{"text": "hello"}
		]}
	}`), &ev)
	require.NoError(t, err)

	calls := ev.FunctionCallsByID(ev.LongRunningToolIDs)
	require.Len(t, calls, 1)
	assert.Equal(t, "second", calls[0].Name)

	assert.Nil(t, ev.FunctionCallsByID(nil))
}

func TestSetTitleFromPart(t *testing.T) {
	ev := &Event{ID: "e1", ErrorMessage: "model exploded"}
	ev.SetTitleFromPart(nil)
	assert.Equal(t, "errorMessage:model exploded", ev.Title)
}
