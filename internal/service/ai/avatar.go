package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GenerateAvatar asks the image service for a single avatar rendering
// of the prompt and returns its URL. Fails with ErrGenerationFailed
// when no key is configured, the call errors or no URL comes back.
func (s *Service) GenerateAvatar(ctx context.Context, prompt string) (string, error) {
	if !s.imageCfg.Enabled() {
		return "", fmt.Errorf("%w: image service api key is not configured", ErrGenerationFailed)
	}

	payload, err := json.Marshal(map[string]any{
		"prompt": "Professional avatar: " + prompt,
		"n":      1,
		"size":   s.imageCfg.Size,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.imageCfg.BaseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.imageCfg.APIKey)

	resp, err := s.httpCli.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: image service returned %d: %s", ErrGenerationFailed, resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", fmt.Errorf("%w: no image URL received from image service", ErrGenerationFailed)
	}

	return result.Data[0].URL, nil
}
