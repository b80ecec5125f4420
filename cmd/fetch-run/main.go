// Command fetch-run drives one reconstruction end to end: submit the source
// images to the remote reconstruction service, poll until it finishes,
// download the predictions archive into the runs directory, and register it
// with a running scene.report server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/reconlab/scene.report/internal/config"
	"github.com/reconlab/scene.report/internal/jobclient"
	"github.com/reconlab/scene.report/internal/runstore"
)

var (
	configPath = flag.String("config", "scene.report.json", "Path to JSON config file")
	label      = flag.String("label", "", "scene label for the registered run")
	apiBase    = flag.String("api", "http://localhost:8080/api", "base URL of the scene.report server API")
	jobID      = flag.String("job", "", "existing job id to resume (skips submission)")
)

func main() {
	flag.Parse()
	if *jobID == "" && flag.NArg() == 0 {
		log.Fatalf("usage: %s [flags] image.jpg [image.jpg ...]", os.Args[0])
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	pollInterval, err := cfg.PollIntervalDuration()
	if err != nil {
		log.Fatalf("bad config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := jobclient.New(cfg.JobServiceURL)

	id := *jobID
	if id == "" {
		job, err := client.Submit(ctx, *label, flag.Args())
		if err != nil {
			log.Fatalf("failed to submit job: %v", err)
		}
		id = job.ID
		log.Printf("✓ Submitted job %s (%d images)", id, flag.NArg())
	}

	job, err := client.WaitForCompletion(ctx, id, pollInterval)
	if err != nil {
		log.Fatalf("job %s did not complete: %v", id, err)
	}
	log.Printf("✓ Job %s %s", job.ID, job.State)

	archivePath := filepath.Join(cfg.RunsDir, job.ID, "predictions.npz")
	if err := client.FetchPredictionsToFile(ctx, job.ID, archivePath); err != nil {
		log.Fatalf("failed to download predictions: %v", err)
	}
	log.Printf("✓ Downloaded %s", archivePath)

	run, err := registerRun(ctx, *apiBase, *label, archivePath)
	if err != nil {
		log.Fatalf("failed to register run: %v", err)
	}
	log.Printf("✓ Registered run %s (%s, %d frames)", run.ID, run.State, run.FrameCount)
}

// registerRun hands the downloaded archive to the server, which parses it and
// caches the camera summary.
func registerRun(ctx context.Context, apiBase, label, archivePath string) (*runstore.Run, error) {
	body, err := json.Marshal(map[string]string{"label": label, "archivePath": archivePath})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+"/runs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, apiErr.Error)
	}

	var run runstore.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}
	return &run, nil
}
