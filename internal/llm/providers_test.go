package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestAnthropic_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":" Establish Issue "}],
			"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":3}}`))
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", "claude-test", option.WithBaseURL(srv.URL+"/"))
	out, err := p.Generate(context.Background(), DefaultSystemPrompt, "classify this")
	require.NoError(t, err)
	assert.Equal(t, "Establish Issue", out)
	assert.Equal(t, FlavorXML, p.Flavor())

	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 1024, body["max_tokens"])
}

func TestAnthropic_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropic("k", "m", option.WithBaseURL(srv.URL+"/")).Generate(context.Background(), "s", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestOpenAI_Generate(t *testing.T) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Probe for Further Information"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := NewOpenAI("sk-test", "gpt-4", srv.URL+"/v1")
	out, err := p.Generate(context.Background(), DefaultSystemPrompt, "classify")
	require.NoError(t, err)
	assert.Equal(t, "Probe for Further Information", out)
	assert.Equal(t, FlavorPlain, p.Flavor())

	assert.Equal(t, "gpt-4", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("sk", "gpt-4", srv.URL+"/v1").Generate(context.Background(), "s", "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGemini_Generate(t *testing.T) {
	var gotSystem, gotPrompt string
	g := &Gemini{
		model: "gemini-test",
		generate: func(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, "gemini-test", model)
			gotPrompt = contents[0].Parts[0].Text
			gotSystem = cfg.SystemInstruction.Parts[0].Text

			return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "be more "}, {Text: "empathetic"}}},
			}}}, nil
		},
	}

	out, err := g.Generate(context.Background(), "sys", "tone please")
	require.NoError(t, err)
	assert.Equal(t, "be more empathetic", out)
	assert.Equal(t, "sys", gotSystem)
	assert.Equal(t, "tone please", gotPrompt)
}

func TestGemini_Errors(t *testing.T) {
	g := &Gemini{generate: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("quota")
	}}
	_, err := g.Generate(context.Background(), "s", "p")
	assert.ErrorIs(t, err, ErrUpstream)

	g.generate = func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	}
	_, err = g.Generate(context.Background(), "s", "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
