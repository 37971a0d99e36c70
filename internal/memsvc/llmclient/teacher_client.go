package llmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/kittclouds/memsvc/internal/memsvc/canon"
)

type teacherRequest struct {
	RawTopic        string `json:"raw_topic"`
	NormalizedTopic string `json:"normalized_topic"`
}

// TeacherClient calls the external large LM for topic
// canonicalization. It implements canon.TeacherClient.
type TeacherClient struct {
	http    HTTPClient
	url     string
	timeout time.Duration
}

func NewTeacherClient(client HTTPClient, cfg Config) *TeacherClient {
	return &TeacherClient{http: client, url: cfg.TeacherURL, timeout: cfg.Timeout}
}

// CanonicalizeTopic implements canon.TeacherClient.
func (c *TeacherClient) CanonicalizeTopic(ctx context.Context, rawTopic, normalizedTopic string) (*canon.TeacherResponse, error) {
	req := teacherRequest{RawTopic: rawTopic, NormalizedTopic: normalizedTopic}
	var resp canon.TeacherResponse
	if err := postJSON(ctx, c.http, c.url, c.timeout, req, &resp); err != nil {
		return nil, err
	}
	if resp.CanonicalTopic == "" {
		return nil, fmt.Errorf("llmclient: teacher returned empty canonical_topic")
	}
	return &resp, nil
}
