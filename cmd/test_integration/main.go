package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var (
	baseURL    = envOr("LINEAGE_URL", "http://localhost:8080")
	adminToken = os.Getenv("LINEAGE_ADMIN_TOKEN")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

const smokeTree = `{"data": [
	{"id": "smoke-grandparent", "data": {"first name": "Gustave", "last name": "Smoke"}, "rels": {"children": ["smoke-parent"]}},
	{"id": "smoke-parent", "data": {"first name": "Paule", "last name": "Smoke"}, "rels": {"children": ["smoke-child"]}},
	{"id": "smoke-child", "data": {"first name": "Camille", "last name": "Smoke"}, "rels": {"parents": ["smoke-parent"]}}
]}`

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	steps := []struct {
		name  string
		check func() error
	}{
		{"Health", func() error {
			_, err := call(http.MethodGet, "/healthz", nil)
			return err
		}},
		{"Ingest tree", func() error {
			var report map[string]any
			body, err := call(http.MethodPost, "/tree?reset=true&closure=true", []byte(smokeTree))
			if err != nil {
				return err
			}
			if err := json.Unmarshal(body, &report); err != nil {
				return err
			}
			if report["persons_imported"] != float64(3) {
				return fmt.Errorf("persons_imported = %v", report["persons_imported"])
			}
			return nil
		}},
		{"Descendants", func() error {
			var resp struct {
				Descendants []struct {
					ID    string `json:"id"`
					Depth int    `json:"depth"`
				} `json:"descendants"`
			}
			body, err := call(http.MethodGet, "/person/smoke-grandparent/descendants", nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return err
			}
			if len(resp.Descendants) != 2 || resp.Descendants[1].ID != "smoke-child" || resp.Descendants[1].Depth != 2 {
				return fmt.Errorf("unexpected descendants: %s", body)
			}
			return nil
		}},
		{"Search", func() error {
			var resp struct {
				Results []map[string]any `json:"results"`
			}
			body, err := call(http.MethodGet, "/search?q=camille", nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return err
			}
			if len(resp.Results) == 0 {
				return fmt.Errorf("no search results")
			}
			return nil
		}},
	}

	for i, step := range steps {
		fmt.Printf("%d. %s...\n", i+1, step.name)
		if err := step.check(); err != nil {
			fmt.Printf("FAILED: %s: %v\n", step.name, err)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", step.name)
	}
}

func call(method, endpoint string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}
