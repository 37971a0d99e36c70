package llmclient

import (
	"context"
	"time"
)

// chatMessage mirrors the OpenAI-style chat message envelope the teacher's
// pkg/memory/openrouter.go builds for its own LLM calls.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type routingRequest struct {
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// RouterClient calls the small LM endpoint described: "HTTP
// POST to a local endpoint. Request: messages array + JSON-object
// response format. Response: an assistant message containing a
// JSON-serializable RoutingPlan."
type RouterClient struct {
	http    HTTPClient
	url     string
	timeout time.Duration
}

// NewRouterClient constructs a RouterClient against cfg.RouterURL/Timeout.
// Pass http.DefaultClient or any HTTPClient-satisfying fake.
func NewRouterClient(client HTTPClient, cfg Config) *RouterClient {
	return &RouterClient{http: client, url: cfg.RouterURL, timeout: cfg.Timeout}
}

// Route posts systemPrompt + userMessage to the router LM and returns the
// assistant's raw JSON text, for router.ParsePlan to validate.
func (c *RouterClient) Route(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	req := routingRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	var resp chatCompletionResponse
	if err := postJSON(ctx, c.http, c.url, c.timeout, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyRouterResponse
	}
	return resp.Choices[0].Message.Content, nil
}

var errEmptyRouterResponse = &routerError{"router returned no choices"}

type routerError struct{ msg string }

func (e *routerError) Error() string { return e.msg }
