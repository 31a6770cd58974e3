package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"
)

var (
	apiURL     string
	outputJSON bool
	verbose    bool
)

// HTTPClient is the client used for proxy calls
var HTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
}

// SetAPIConfig sets the proxy location and request timeout
func SetAPIConfig(url string, timeout time.Duration) {
	apiURL = strings.TrimRight(url, "/")
	if timeout > 0 {
		HTTPClient.Timeout = timeout
	}
}

// SetOutputJSON sets the output format preference
func SetOutputJSON(json bool) {
	outputJSON = json
}

// SetVerbose sets verbose output
func SetVerbose(v bool) {
	verbose = v
}

// APIError is a non-2xx proxy response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proxy returned %d: %s", e.StatusCode, e.Message)
}

// APIRequest calls the proxy and returns the raw body of a 2xx response.
func APIRequest(ctx context.Context, out io.Writer, method, endpoint string, body interface{}) ([]byte, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("API URL required")
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if verbose {
		_, _ = fmt.Fprintf(out, "Making %s request to: %s\n", method, apiURL+endpoint)
	}

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return respBody, nil
}

// OutputTable outputs data in table format
func OutputTable(out io.Writer, headers []string, rows [][]string) {
	if outputJSON {
		jsonRows := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			jsonRow := make(map[string]string)
			for i, cell := range row {
				if i < len(headers) {
					jsonRow[headers[i]] = cell
				}
			}
			jsonRows = append(jsonRows, jsonRow)
		}
		OutputJSON(out, jsonRows)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))

	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	_, _ = fmt.Fprintln(w, strings.Join(sep, "\t"))

	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// OutputJSON outputs data in JSON format
func OutputJSON(out io.Writer, data interface{}) {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		_, _ = fmt.Fprintf(out, "Error encoding JSON: %v\n", err)
	}
}
