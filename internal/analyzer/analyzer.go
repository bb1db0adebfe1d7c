// Package analyzer adapts the external semantic-tag extractor. The core
// calls it to turn raw text into keyword tags and a complexity estimate; it
// never implements the extraction itself, and callers must tolerate it being
// entirely unavailable.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Analysis is what the extractor returns for a piece of text.
type Analysis struct {
	Tags       []string `json:"tags"`
	Complexity float64  `json:"complexity"`
}

// Client is the interface to the semantic-tag extractor.
type Client interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

// HTTPAnalyzer talks to an extractor service over JSON/HTTP.
type HTTPAnalyzer struct {
	url    string
	client *http.Client
}

// NewHTTPAnalyzer creates an analyzer client for the given base URL.
func NewHTTPAnalyzer(url string) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Analyze sends text to the extractor's analyze endpoint.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, text string) (Analysis, error) {
	reqBody, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Analysis{}, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.url+"/analyze", bytes.NewReader(reqBody))
	if err != nil {
		return Analysis{}, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("analyzer api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Analysis{}, fmt.Errorf("read analyze response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Analysis{}, fmt.Errorf("analyzer status %d: %s", resp.StatusCode, respBody)
	}

	var result Analysis
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Analysis{}, fmt.Errorf("decode analyze response: %w", err)
	}
	return result, nil
}

// Probe checks whether the extractor is reachable.
func Probe(url string) bool {
	client := &http.Client{Timeout: 3 * time.Second}
	body, _ := json.Marshal(map[string]string{"text": "probe"})
	resp, err := client.Post(url+"/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
