package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"card-approval-service/internal/config"
	"card-approval-service/internal/core/domain"
)

const searchPageSize = 200

// APIError is a non-2xx answer from the tracking server.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mlflow: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("mlflow: status %d", e.StatusCode)
}

// Client talks to the MLflow tracking server REST API. Calls go through a
// circuit breaker that only counts transport failures and 5xx answers.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func NewClient(cfg *config.RegistryConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        "mlflow",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("registry circuit breaker state changed")
		},
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.TrackingURI, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// do sends req through the breaker. A non-2xx answer is returned as
// *APIError with the body already consumed.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		defer resp.Body.Close()

		apiErr := &APIError{StatusCode: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(body, apiErr)
		return nil, apiErr
	})
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

type searchModelVersionsResponse struct {
	ModelVersions []domain.ModelVersion `json:"model_versions"`
	NextPageToken string                `json:"next_page_token"`
}

// SearchModelVersions returns every version registered under name.
func (c *Client) SearchModelVersions(ctx context.Context, name string) ([]domain.ModelVersion, error) {
	params := url.Values{}
	params.Set("filter", fmt.Sprintf("name='%s'", strings.ReplaceAll(name, "'", "\\'")))
	params.Set("max_results", fmt.Sprint(searchPageSize))

	var versions []domain.ModelVersion
	for {
		var page searchModelVersionsResponse
		if err := c.getJSON(ctx, "/api/2.0/mlflow/model-versions/search", params, &page); err != nil {
			return nil, fmt.Errorf("search model versions: %w", err)
		}
		versions = append(versions, page.ModelVersions...)
		if page.NextPageToken == "" {
			break
		}
		params.Set("page_token", page.NextPageToken)
	}

	log.WithFields(log.Fields{"model": name, "versions": len(versions)}).Debug("searched model versions")
	return versions, nil
}

// FileInfo is one entry of a run's artifact listing.
type FileInfo struct {
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
	FileSize int64  `json:"file_size,omitempty"`
}

type listArtifactsResponse struct {
	RootURI string     `json:"root_uri"`
	Files   []FileInfo `json:"files"`
}

// ListArtifacts lists the direct children of artifactPath in a run.
func (c *Client) ListArtifacts(ctx context.Context, runID, artifactPath string) ([]FileInfo, error) {
	params := url.Values{}
	params.Set("run_id", runID)
	if artifactPath != "" {
		params.Set("path", artifactPath)
	}

	var resp listArtifactsResponse
	if err := c.getJSON(ctx, "/api/2.0/mlflow/artifacts/list", params, &resp); err != nil {
		return nil, fmt.Errorf("list artifacts %s: %w", artifactPath, err)
	}
	return resp.Files, nil
}

// DownloadArtifacts copies runs:/<runID>/<artifactPath> under dst keeping the
// run-relative layout, and returns dst/<artifactPath>.
func (c *Client) DownloadArtifacts(ctx context.Context, runID, artifactPath, dst string) (string, error) {
	artifactPath = strings.Trim(path.Clean("/"+artifactPath), "/")
	if artifactPath == "" {
		return "", fmt.Errorf("%w: empty artifact path", domain.ErrArtifactNotFound)
	}

	files, err := c.ListArtifacts(ctx, runID, artifactPath)
	if err != nil {
		return "", err
	}

	target := filepath.Join(dst, filepath.FromSlash(artifactPath))

	// Listing a file path yields nothing; fetch it as a single file.
	if len(files) == 0 {
		if err := c.downloadFile(ctx, runID, artifactPath, dst); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				return "", fmt.Errorf("%w: runs:/%s/%s", domain.ErrArtifactNotFound, runID, artifactPath)
			}
			return "", err
		}
		return target, nil
	}

	if err := c.downloadTree(ctx, runID, files, dst); err != nil {
		return "", err
	}

	log.WithFields(log.Fields{"run_id": runID, "path": artifactPath, "dst": target}).Info("downloaded artifacts")
	return target, nil
}

func (c *Client) downloadTree(ctx context.Context, runID string, files []FileInfo, dst string) error {
	for _, f := range files {
		if f.IsDir {
			children, err := c.ListArtifacts(ctx, runID, f.Path)
			if err != nil {
				return err
			}
			if err := c.downloadTree(ctx, runID, children, dst); err != nil {
				return err
			}
			continue
		}
		if err := c.downloadFile(ctx, runID, f.Path, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) downloadFile(ctx context.Context, runID, artifactPath, dst string) error {
	local, err := localPath(dst, artifactPath)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("run_id", runID)
	params.Set("path", artifactPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get-artifact?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("get artifact %s: %w", artifactPath, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(local), err)
	}
	out, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("create %s: %w", local, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", local, err)
	}
	return out.Close()
}

// localPath maps a run-relative artifact path under dst, rejecting paths
// that would land outside it.
func localPath(dst, artifactPath string) (string, error) {
	local := filepath.Join(dst, filepath.FromSlash(artifactPath))
	rel, err := filepath.Rel(dst, local)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact path %q escapes destination", artifactPath)
	}
	return local, nil
}

// Ping issues the cheapest authenticated call the server offers.
func (c *Client) Ping(ctx context.Context) error {
	body := bytes.NewBufferString(`{"max_results":1}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/2.0/mlflow/experiments/search", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
