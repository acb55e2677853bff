package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/retryit/model"
)

func newTestModel(t *testing.T, status int, body string) *Model {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	return NewModelFromClient(&client)
}

func TestModel_Generate(t *testing.T) {
	m := newTestModel(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-sonnet-20241022",
		"content": [{"type": "text", "text": "hello"}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 3, "output_tokens": 2}
	}`)

	resp, err := model.Collect(context.Background(), m, model.Request{
		Instructions: "be brief",
		Messages:     []model.Message{{Role: model.RoleUser, Text: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, "end_turn", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestModel_OverloadedIsRetryable(t *testing.T) {
	m := newTestModel(t, statusOverloaded, `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`)

	_, err := model.Collect(context.Background(), m, model.Prompt("hi"))
	require.Error(t, err)

	desc, ok := Describer.Describe(err)
	require.True(t, ok)
	assert.True(t, desc.Retryable)
}

func TestDescribe_StatusClasses(t *testing.T) {
	for status, retryable := range map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusForbidden:           false,
		http.StatusNotFound:            false,
	} {
		desc, ok := Describer.Describe(&anthropic.Error{StatusCode: status})
		require.True(t, ok)
		assert.Equal(t, retryable, desc.Retryable, "status %d", status)
	}

	_, ok := Describer.Describe(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestBuildMessages_SkipsSystem(t *testing.T) {
	req := model.Request{Messages: []model.Message{
		{Role: model.RoleSystem, Text: "rules"},
		{Role: model.RoleUser, Text: "q"},
		{Role: model.RoleAssistant, Text: "a"},
	}}

	assert.Len(t, buildMessages(req.Messages), 2)
	assert.Len(t, systemBlocks(req), 1)
}
