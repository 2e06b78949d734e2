package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/crawlchat/crawlchat/core"
)

func TestBuildContents(t *testing.T) {
	messages := []core.Message{
		core.SystemMessage("instructions"),
		core.UserMessage("scrape example.com"),
		{
			Role: core.RoleAssistant,
			ToolCalls: []core.ToolCall{
				{ID: "call-1", Name: "firecrawl_scrape", Arguments: `{"url":"https://example.com"}`},
			},
		},
		core.ToolMessage("call-1", "firecrawl_scrape", `{"markdown":"# Example"}`),
		{Role: core.RoleAssistant, Content: "Here is the page."},
	}

	contents := buildContents(messages)
	require.Len(t, contents, 4, "system message should be excluded")

	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "scrape example.com", contents[0].Parts[0].Text)

	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "firecrawl_scrape", contents[1].Parts[0].FunctionCall.Name)
	assert.Equal(t, "https://example.com", contents[1].Parts[0].FunctionCall.Args["url"])

	assert.Equal(t, genai.RoleUser, contents[2].Role)
	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, "firecrawl_scrape", contents[2].Parts[0].FunctionResponse.Name)
	assert.Equal(t, "# Example", contents[2].Parts[0].FunctionResponse.Response["markdown"])

	assert.Equal(t, genai.RoleModel, contents[3].Role)
	assert.Equal(t, "Here is the page.", contents[3].Parts[0].Text)
}

func TestToolResponsePayloadWrapsPlainText(t *testing.T) {
	payload := toolResponsePayload("plain text output")
	assert.Equal(t, map[string]any{"result": "plain text output"}, payload)

	payload = toolResponsePayload(`{"ok":true}`)
	assert.Equal(t, map[string]any{"ok": true}, payload)
}

func TestToGeminiSchema(t *testing.T) {
	schema := toGeminiSchema(map[string]any{
		"type":        "object",
		"description": "scrape options",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "target url",
			},
			"formats": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": []any{"markdown", "html"}},
			},
		},
		"required": []any{"url"},
	})

	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, "scrape options", schema.Description)
	assert.Equal(t, []string{"url"}, schema.Required)
	require.Contains(t, schema.Properties, "url")
	assert.Equal(t, genai.TypeString, schema.Properties["url"].Type)
	require.Contains(t, schema.Properties, "formats")
	require.NotNil(t, schema.Properties["formats"].Items)
	assert.Equal(t, []string{"markdown", "html"}, schema.Properties["formats"].Items.Enum)

	assert.Nil(t, toGeminiSchema(nil))
}
