// Package jobclient talks to the remote reconstruction service that runs the
// 3D reconstruction job and serves the finished predictions archive. It is a
// thin collaborator: its only job is to hand the decode pipeline a raw byte
// buffer once the remote job completes.
package jobclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/reconlab/scene.report/internal/monitoring"
	"github.com/reconlab/scene.report/internal/timeutil"
)

const (
	reqTimeout    = 30 * time.Second
	maxRetryCount = 3
	retryDelay    = 200 * time.Millisecond
)

// Remote job states as reported by the service.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// ErrJobFailed is returned when the remote job reaches a terminal failure
// state.
var ErrJobFailed = errors.New("remote reconstruction job failed")

// Job is the remote service's view of one reconstruction job.
type Job struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// Client is an HTTP client for the reconstruction service API.
type Client struct {
	*resty.Client

	clock timeutil.Clock
}

// New returns an initialized client for the service at baseURL.
func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(reqTimeout).
		SetRetryCount(maxRetryCount).
		SetRetryWaitTime(retryDelay)
	return &Client{Client: r, clock: timeutil.RealClock{}}
}

// SetClock swaps the clock driving the poll loop. Tests use a
// timeutil.MockClock to step through polls without sleeping.
func (c *Client) SetClock(clock timeutil.Clock) {
	c.clock = clock
}

// Submit starts a reconstruction job over the named source images and
// returns the created job.
func (c *Client) Submit(ctx context.Context, label string, imagePaths []string) (*Job, error) {
	var job Job
	resp, err := c.R().
		SetContext(ctx).
		SetBody(map[string]any{"label": label, "images": imagePaths}).
		SetResult(&job).
		Post("/v1/jobs")
	if err != nil {
		return nil, fmt.Errorf("couldn't reach reconstruction service: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("submit job: unexpected status %s", resp.Status())
	}
	return &job, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	resp, err := c.R().
		SetContext(ctx).
		SetResult(&job).
		Get(fmt.Sprintf("/v1/jobs/%s", jobID))
	if err != nil {
		return nil, fmt.Errorf("couldn't reach reconstruction service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("job status: unexpected status %s", resp.Status())
	}
	// An empty state means the body never unmarshalled (wrong content type or
	// a non-JSON error page); surface that instead of handing back a zero Job.
	if job.State == "" {
		return nil, fmt.Errorf("job status: no job state in response (content type %q)", resp.Header().Get("Content-Type"))
	}
	return &job, nil
}

// WaitForCompletion polls the job until it reaches a terminal state or ctx is
// done. Returns ErrJobFailed (with the remote error text) on failure.
func (c *Client) WaitForCompletion(ctx context.Context, jobID string, pollInterval time.Duration) (*Job, error) {
	ticker := c.clock.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.Status(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch job.State {
		case JobCompleted:
			return job, nil
		case JobFailed:
			return job, fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
		case JobQueued, JobRunning:
			// keep polling
		default:
			// A state this client doesn't know is not worth polling on: it
			// would loop until ctx expires against a misbehaving service.
			return job, fmt.Errorf("job %s reported unknown state %q", jobID, job.State)
		}
		monitoring.Logf("job %s still %s, polling again in %v", jobID, job.State, pollInterval)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C():
		}
	}
}

// FetchPredictions downloads the finished predictions archive as raw bytes.
func (c *Client) FetchPredictions(ctx context.Context, jobID string) ([]byte, error) {
	resp, err := c.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/v1/jobs/%s/predictions", jobID))
	if err != nil {
		return nil, fmt.Errorf("couldn't download predictions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download predictions: unexpected status %s", resp.Status())
	}
	return resp.Body(), nil
}

// FetchPredictionsToFile downloads the finished archive and writes it to
// path, creating parent directories. This is the hand-off point between the
// remote service and the local decode pipeline.
func (c *Client) FetchPredictionsToFile(ctx context.Context, jobID, path string) error {
	data, err := c.FetchPredictions(ctx, jobID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	monitoring.Logf("job %s: wrote %d-byte predictions archive to %s", jobID, len(data), path)
	return nil
}
