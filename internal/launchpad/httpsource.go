package launchpad

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/usezoracle/tba-be/internal/apperr"
)

// HTTPSource streams newline-delimited JSON batches (`[]RawItem` per line)
// from a long-lived HTTP response body. The upstream wire protocol is out
// of CORE scope (spec.md §1); this is the one concrete Source the
// composition root wires by default.
type HTTPSource struct {
	URL    string
	APIKey string
	Client *http.Client
}

func NewHTTPSource(url, apiKey string) *HTTPSource {
	return &HTTPSource{URL: url, APIKey: apiKey, Client: http.DefaultClient}
}

// Stream blocks until ctx is cancelled or the connection fails, invoking
// onBatch for each decoded line.
func (s *HTTPSource) Stream(ctx context.Context, onBatch func([]RawItem)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return apperr.Transient("building launchpad feed request", err)
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	req.Header.Set("Accept", "application/x-ndjson")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return apperr.Transient("connecting to launchpad feed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.Transient(fmt.Sprintf("launchpad feed returned status %d", resp.StatusCode), nil)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var items []RawItem
		if err := json.Unmarshal(line, &items); err != nil {
			continue
		}
		onBatch(items)
	}
	if err := scanner.Err(); err != nil {
		return apperr.Transient("reading launchpad feed", err)
	}
	return nil
}
