package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Provider extracts structured fields from a stored resume. The real
// implementation is a separate parsing service reached over HTTP; this
// backend treats its output as opaque.
type Provider interface {
	Parse(ctx context.Context, fileURL string, jobRequirements []string) (*ParsedData, error)
}

type ParsedData struct {
	Skills     []string `json:"skills"`
	Experience string   `json:"experience"`
	Education  string   `json:"education"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Score      int      `json:"score"`
}

type parseRequest struct {
	FileURL         string   `json:"file_url"`
	JobRequirements []string `json:"job_requirements"`
}

type parseResponse struct {
	Success bool        `json:"success"`
	Data    *ParsedData `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider points at the parsing service. Parsing large PDFs is
// slow, so the default timeout is generous.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Parse(ctx context.Context, fileURL string, jobRequirements []string) (*ParsedData, error) {
	body, err := json.Marshal(parseRequest{FileURL: fileURL, JobRequirements: jobRequirements})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/parse-resume", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	var out parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.Success || out.Data == nil {
		if out.Error != "" {
			return nil, fmt.Errorf("analyzer error: %s", out.Error)
		}
		return nil, fmt.Errorf("analyzer returned no data")
	}

	if out.Data.Score < 0 {
		out.Data.Score = 0
	}
	if out.Data.Score > 100 {
		out.Data.Score = 100
	}
	return out.Data, nil
}
