package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const graphBaseURL = "https://graph.facebook.com"

// graphError is the error envelope the Graph API wraps every failure in.
type graphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
}

type graphErrorEnvelope struct {
	Error *graphError `json:"error"`
}

// parseGraphError extracts the message/code pair from a Graph API error
// body. Falls back to the raw body when the envelope is missing.
func parseGraphError(body []byte) string {
	var env graphErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		if env.Error.ErrorSubcode != 0 {
			return fmt.Sprintf("%s (code %d, subcode %d)", env.Error.Message, env.Error.Code, env.Error.ErrorSubcode)
		}
		return fmt.Sprintf("%s (code %d)", env.Error.Message, env.Error.Code)
	}
	raw := strings.TrimSpace(string(body))
	if len(raw) > 300 {
		raw = raw[:300]
	}
	return raw
}

// graphClient issues Graph API calls against one API version. The base URL
// is swappable so tests can point it at a local server.
type graphClient struct {
	client     *http.Client
	baseURL    string
	apiVersion string
}

func newGraphClient(client *http.Client, apiVersion string) *graphClient {
	return &graphClient{client: client, baseURL: graphBaseURL, apiVersion: apiVersion}
}

func (g *graphClient) endpoint(path string) string {
	return fmt.Sprintf("%s/%s%s", g.baseURL, g.apiVersion, path)
}

// PostForm sends a form-encoded POST and decodes the JSON response into out.
// A non-2xx status or Graph error envelope is returned as an error carrying
// the parsed platform message.
func (g *graphClient) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(path), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req, out)
}

// Get sends a GET with query params and decodes the JSON response into out.
func (g *graphClient) Get(ctx context.Context, path string, params url.Values, out any) error {
	u := g.endpoint(path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *graphClient) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s", parseGraphError(body))
	}
	if env := new(graphErrorEnvelope); json.Unmarshal(body, env) == nil && env.Error != nil {
		return fmt.Errorf("%s", parseGraphError(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
		}
	}
	return nil
}

// downloadToTemp streams a media object into a temporary file for binary
// upload paths. The caller removes the file.
func downloadToTemp(ctx context.Context, client *http.Client, fileURL string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("media download failed with status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "socialflow-media-*")
	if err != nil {
		return "", 0, err
	}
	size, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	if closeErr != nil {
		os.Remove(tmp.Name())
		return "", 0, closeErr
	}
	return tmp.Name(), size, nil
}

// failure shortens the common publish error return.
func failure(format string, args ...any) PublishResult {
	return PublishResult{Success: false, ErrorMessage: fmt.Sprintf(format, args...)}
}

func analyticsFailure(format string, args ...any) AnalyticsResult {
	return AnalyticsResult{Success: false, ErrorMessage: fmt.Sprintf(format, args...)}
}
