package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"clipforge/internal/domain"
	"clipforge/internal/infra"
	"clipforge/internal/realtime"
	"clipforge/internal/renderapi"
	"clipforge/internal/track"
)

// renderwatch submits one render job and tails its status until it settles.
// Useful for poking the backend without the dashboard in front of it.
func main() {
	var (
		productFlag  string
		mediaFlag    string
		templateFlag string
		titleFlag    string
		timeoutFlag  time.Duration
	)
	flag.StringVar(&productFlag, "product", "", "product id to render (required)")
	flag.StringVar(&mediaFlag, "media", "", "comma-separated media ids (required)")
	flag.StringVar(&templateFlag, "template", "showcase", "render template")
	flag.StringVar(&titleFlag, "title", "", "video title")
	flag.DurationVar(&timeoutFlag, "timeout", 10*time.Minute, "give up after this long")
	flag.Parse()

	if productFlag == "" || mediaFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	backend, err := renderapi.NewClient(renderapi.Options{
		BaseURL: cfg.RenderAPIBaseURL,
		Token:   cfg.RenderAPIToken,
		Logger:  &logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend client: %v\n", err)
		os.Exit(1)
	}

	var subscribe track.SubscribeFunc
	if cfg.RealtimeURL != "" {
		rt, err := realtime.NewClient(realtime.Options{URL: cfg.RealtimeURL, Token: cfg.RenderAPIToken, Logger: &logger})
		if err != nil {
			fmt.Fprintf(os.Stderr, "realtime client: %v\n", err)
			os.Exit(1)
		}
		subscribe = func(ctx context.Context, jobID string) (track.Subscription, error) {
			return rt.Subscribe(ctx, jobID)
		}
	}

	tracker := track.NewTracker(track.Options{
		Backend:      backend,
		Subscribe:    subscribe,
		OwnerID:      cfg.OwnerID,
		PollInterval: cfg.PollInterval,
		Logger:       &logger,
	})
	defer tracker.Close()

	media := make([]string, 0)
	for _, id := range strings.Split(mediaFlag, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			media = append(media, trimmed)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	res, err := tracker.CreateJob(ctx, renderapi.CreateJobRequest{
		ProductID: productFlag,
		MediaIDs:  media,
		Template:  templateFlag,
		Title:     titleFlag,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("job_id=%s\n", res.JobID)

	last := domain.JobStatus("")
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "timed out waiting for terminal status")
			os.Exit(1)
		case <-ticker.C:
		}
		status := tracker.Status(res.JobID)
		if status != last {
			last = status
			record, _ := tracker.Record(res.JobID)
			fmt.Printf("%s  %s\n", status, domain.StatusMessage(domain.JobStatus(record.RawStatus), record.ProgressDetail, "en"))
		}
		if status.IsTerminal() {
			break
		}
	}

	if jobs, err := tracker.ListJobs(ctx); err == nil {
		for _, j := range jobs {
			if j.ID == res.JobID && j.ArtifactURL != "" {
				fmt.Printf("artifact=%s duration=%.1fs\n", j.ArtifactURL, j.DurationSec)
			}
		}
	}
	if last == domain.JobStatusFailed {
		os.Exit(1)
	}
}
