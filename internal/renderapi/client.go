package renderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/infra"
)

// ErrMissingToken indicates that the client was configured without credentials.
var ErrMissingToken = errors.New("renderapi: bearer token is required")

// Options configures the render backend client.
type Options struct {
	BaseURL        string
	Token          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the job-execution backend. The backend owns
// durable job state; clipforge only reads and mutates it through this client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *infra.Logger
}

// CreateJobRequest captures the semantic fields of a job submission. The same
// fields feed the submission fingerprint, so their order here is part of the
// dedup contract.
type CreateJobRequest struct {
	ProductID string   `json:"product_id"`
	MediaIDs  []string `json:"media_ids"`
	Template  string   `json:"template"`
	Title     string   `json:"title"`
	Script    string   `json:"script,omitempty"`
}

// CreateJobResponse is the accepted-submission acknowledgement.
type CreateJobResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusResponse is a point-in-time status read for one job.
type JobStatusResponse struct {
	JobID          string                 `json:"job_id"`
	Status         domain.JobStatus       `json:"status"`
	ProgressDetail *domain.ProgressDetail `json:"progress_detail,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listJobsResponse struct {
	Items []domain.Job `json:"items"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("renderapi: base url is required")
	}
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, ErrMissingToken
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CreateJob submits a new render job and returns the server-assigned id.
func (c *Client) CreateJob(ctx context.Context, req CreateJobRequest) (*CreateJobResponse, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, errors.New("renderapi: product id is required")
	}
	if len(req.MediaIDs) == 0 {
		return nil, errors.New("renderapi: at least one media id is required")
	}
	var out CreateJobResponse
	if err := c.do(ctx, http.MethodPost, "/jobs", req, &out); err != nil {
		return nil, err
	}
	if out.JobID == "" {
		return nil, errors.New("renderapi: empty job id in response")
	}
	c.logger.Debug().Str("job_id", out.JobID).Msg("renderapi: job created")
	return &out, nil
}

// GetJobStatus reads the current status of one job.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	if jobID == "" {
		return nil, errors.New("renderapi: job id is required")
	}
	var out JobStatusResponse
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/status", nil, &out); err != nil {
		return nil, err
	}
	if out.JobID == "" {
		out.JobID = jobID
	}
	return &out, nil
}

// ListJobs returns all jobs for an owner, including server-derived fields
// such as the final artifact location.
func (c *Client) ListJobs(ctx context.Context, ownerID string) ([]domain.Job, error) {
	path := "/jobs"
	if ownerID != "" {
		path += "?owner_id=" + url.QueryEscape(ownerID)
	}
	var out listJobsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// DeleteJob removes a job from the backend.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("renderapi: job id is required")
	}
	return c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(jobID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("renderapi: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("renderapi: build request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("renderapi: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("renderapi: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			switch detail.Code {
			case "quota_exceeded":
				return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, detail.Message)
			case "not_found":
				return fmt.Errorf("%w: %s", domain.ErrNotFound, detail.Message)
			}
			return fmt.Errorf("%w: %s (%s)", domain.ErrBackendRejected, detail.Message, detail.Code)
		}
		return fmt.Errorf("%w: status %d: %s", domain.ErrBackendRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("renderapi: decode response: %w", err)
	}
	return nil
}
