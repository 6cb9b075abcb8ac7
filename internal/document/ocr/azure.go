// Package ocr reads the printed text off document photographs using the
// Azure Document Intelligence prebuilt-read model over its REST surface.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/config"
)

const analyzePath = "/formrecognizer/documentModels/prebuilt-read:analyze"

// Client submits images to the prebuilt-read model and polls the analyze
// operation until it settles. Safe for concurrent use.
type Client struct {
	endpoint     string
	key          string
	apiVersion   string
	pollInterval time.Duration
	httpc        *http.Client
}

func NewClient(cfg config.OCRConfig) *Client {
	return &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		key:          cfg.Key,
		apiVersion:   cfg.APIVersion,
		pollInterval: cfg.PollInterval,
		httpc:        &http.Client{Timeout: cfg.Timeout},
	}
}

type analyzeResponse struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Pages []struct {
			Lines []struct {
				Content string `json:"content"`
			} `json:"lines"`
		} `json:"pages"`
	} `json:"analyzeResult"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ReadText runs the prebuilt-read model over one image and returns the
// recognized lines joined with newlines, in reading order.
func (c *Client) ReadText(ctx context.Context, image []byte) (string, error) {
	opLocation, err := c.submit(ctx, image)
	if err != nil {
		return "", &domain.OCRError{Err: err}
	}

	result, err := c.poll(ctx, opLocation)
	if err != nil {
		return "", &domain.OCRError{Err: err}
	}

	var lines []string
	for _, page := range result.AnalyzeResult.Pages {
		for _, line := range page.Lines {
			lines = append(lines, line.Content)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Client) submit(ctx context.Context, image []byte) (string, error) {
	url := fmt.Sprintf("%s%s?api-version=%s", c.endpoint, analyzePath, c.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("analyze submit returned status %d", resp.StatusCode)
	}

	opLocation := resp.Header.Get("Operation-Location")
	if opLocation == "" {
		return "", fmt.Errorf("analyze submit returned no Operation-Location header")
	}
	return opLocation, nil
}

func (c *Client) poll(ctx context.Context, opLocation string) (*analyzeResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		result, err := c.fetch(ctx, opLocation)
		if err != nil {
			return nil, err
		}

		switch result.Status {
		case "succeeded":
			return result, nil
		case "failed":
			return nil, fmt.Errorf("analyze operation failed: %s: %s", result.Error.Code, result.Error.Message)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) fetch(ctx context.Context, opLocation string) (*analyzeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opLocation, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyze poll returned status %d", resp.StatusCode)
	}

	var result analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding analyze result: %w", err)
	}
	return &result, nil
}
