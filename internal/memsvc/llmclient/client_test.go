package llmclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeHTTPClient returns a fixed status/body for every request, letting
// the JSON-envelope clients be tested without a real listener.
type fakeHTTPClient struct {
	status int
	body   string
	err    error
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewBufferString(f.body)),
	}, nil
}

func TestL2NormalizeUnitLength(t *testing.T) {
	vec := []float32{3, 4}
	L2Normalize(vec)
	require.InDelta(t, 0.6, vec[0], 1e-6)
	require.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestL2NormalizeLeavesZeroVectorUnchanged(t *testing.T) {
	vec := []float32{0, 0, 0}
	L2Normalize(vec)
	require.Equal(t, []float32{0, 0, 0}, vec)
}

func TestRouterClientRoutePropagatesAssistantContent(t *testing.T) {
	fake := &fakeHTTPClient{status: 200, body: `{"choices":[{"message":{"role":"assistant","content":"{\"content_plane\":\"chat\"}"}}]}`}
	c := NewRouterClient(fake, Config{RouterURL: "http://router.local", Timeout: time.Second})

	out, err := c.Route(context.Background(), "system", "user message")
	require.NoError(t, err)
	require.Equal(t, `{"content_plane":"chat"}`, out)
}

func TestRouterClientRouteErrorsOnEmptyChoices(t *testing.T) {
	fake := &fakeHTTPClient{status: 200, body: `{"choices":[]}`}
	c := NewRouterClient(fake, Config{RouterURL: "http://router.local", Timeout: time.Second})

	_, err := c.Route(context.Background(), "system", "user message")
	require.Error(t, err)
}

func TestRouterClientRoutePropagatesHTTPStatusErrors(t *testing.T) {
	fake := &fakeHTTPClient{status: 500, body: "boom"}
	c := NewRouterClient(fake, Config{RouterURL: "http://router.local", Timeout: time.Second})

	_, err := c.Route(context.Background(), "system", "user message")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "500"))
}

func TestTeacherClientCanonicalizeTopicRejectsEmptyCanonical(t *testing.T) {
	fake := &fakeHTTPClient{status: 200, body: `{"canonical_topic":"","aliases":[]}`}
	c := NewTeacherClient(fake, Config{TeacherURL: "http://teacher.local", Timeout: time.Second})

	_, err := c.CanonicalizeTopic(context.Background(), "Cryptos", "cryptos")
	require.Error(t, err)
}

func TestTeacherClientCanonicalizeTopicSuccess(t *testing.T) {
	fake := &fakeHTTPClient{status: 200, body: `{"canonical_topic":"cryptocurrencies","aliases":["cryptos"]}`}
	c := NewTeacherClient(fake, Config{TeacherURL: "http://teacher.local", Timeout: time.Second})

	resp, err := c.CanonicalizeTopic(context.Background(), "Cryptos", "cryptos")
	require.NoError(t, err)
	require.Equal(t, "cryptocurrencies", resp.CanonicalTopic)
	require.Equal(t, []string{"cryptos"}, resp.Aliases)
}

func TestEmbeddingClientEmbedQueryNormalizesAndValidatesDim(t *testing.T) {
	fake := &fakeHTTPClient{status: 200, body: `{"vector":[3,4]}`}
	c := NewEmbeddingClient(fake, Config{EmbeddingURL: "http://embed.local", Timeout: time.Second}, 2)

	vec, err := c.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	require.InDelta(t, 0.6, vec[0], 1e-6)
	require.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestEmbeddingClientEmbedQueryRejectsDimMismatch(t *testing.T) {
	fake := &fakeHTTPClient{status: 200, body: `{"vector":[1,2,3]}`}
	c := NewEmbeddingClient(fake, Config{EmbeddingURL: "http://embed.local", Timeout: time.Second}, 2)

	_, err := c.EmbedQuery(context.Background(), "hello")
	require.Error(t, err)
}

func TestEmbeddingClientEmbedTextsRejectsCountMismatch(t *testing.T) {
	fake := &fakeHTTPClient{status: 200, body: `{"vectors":[[1,0]]}`}
	c := NewEmbeddingClient(fake, Config{EmbeddingURL: "http://embed.local", Timeout: time.Second}, 2)

	_, err := c.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestEmbeddingClientEmbedTextsEmptyInputReturnsNil(t *testing.T) {
	fake := &fakeHTTPClient{status: 200, body: `{"vectors":[]}`}
	c := NewEmbeddingClient(fake, Config{EmbeddingURL: "http://embed.local", Timeout: time.Second}, 2)

	vecs, err := c.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, vecs)
}
