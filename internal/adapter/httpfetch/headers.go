package httpfetch

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadHeaders loads extra HTTP headers from a JSON object file. An empty path
// yields no headers.
func LoadHeaders(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read headers file: %w", err)
	}

	var headers map[string]string
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("failed to parse headers file: %w", err)
	}
	return headers, nil
}
