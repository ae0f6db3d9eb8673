package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/config"
)

const oneShotTimeout = 30 * time.Second

func newClient(configPath, apiOverride string) (*api.Client, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	if apiOverride != "" {
		cfg.APIBaseURL = apiOverride
	}
	token := ""
	if cfg.AuthMode == config.AuthModeBearer {
		token = cfg.AuthToken
	}
	return api.New(cfg.APIBaseURL, token), cfg, nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path (default ~/.config/clipforge/config.yaml)")
	apiURL := fs.String("api", "", "API base URL override")
	asJSON := fs.Bool("json", false, "machine-readable output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: clipforge status <job-id>")
	}

	client, _, err := newClient(*configPath, *apiURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()
	resp, err := client.GetJobStatus(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	if *asJSON {
		return printJSON(resp)
	}

	fmt.Printf("Job: %s\n", resp.JobID)
	fmt.Printf("  Status: %s\n", resp.Status)
	fmt.Printf("  Progress: %d%%\n", resp.Progress)
	if resp.CurrentStep != "" {
		fmt.Printf("  Step: %s\n", resp.CurrentStep)
	}
	if resp.ETASeconds != nil {
		fmt.Printf("  ETA: %s\n", formatETA(*resp.ETASeconds))
	}
	if resp.Error != "" {
		fmt.Printf("  Error: %s\n", resp.Error)
	}
	if resp.Result != nil {
		fmt.Println("\nResult:")
		fmt.Printf("  Premiere: %s\n", resp.Result.PremiereURL)
		fmt.Printf("  CapCut: %s\n", resp.Result.CapcutURL)
		fmt.Printf("  Clips: %d\n", resp.Result.ClipsCount)
		fmt.Printf("  Images: %d\n", resp.Result.ImagesCount)
		fmt.Printf("  Expires: %s\n", resp.Result.ExpiresAt)
	}
	return nil
}

func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path (default ~/.config/clipforge/config.yaml)")
	apiURL := fs.String("api", "", "API base URL override")
	asJSON := fs.Bool("json", false, "machine-readable output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: clipforge download <job-id>")
	}

	client, _, err := newClient(*configPath, *apiURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()
	links, err := client.GetDownloadLinks(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("get download links: %w", err)
	}

	if *asJSON {
		return printJSON(links)
	}

	fmt.Printf("Job: %s\n", links.JobID)
	fmt.Printf("  Premiere: %s\n", links.PremiereURL)
	fmt.Printf("  CapCut: %s\n", links.CapcutURL)
	fmt.Printf("  Clips: %d  Images: %d\n", links.ClipsCount, links.ImagesCount)
	fmt.Printf("  Links expire: %s\n", links.ExpiresAt)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path (default ~/.config/clipforge/config.yaml)")
	apiURL := fs.String("api", "", "API base URL override")
	yes := fs.Bool("yes", false, "skip confirmation")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: clipforge delete <job-id>")
	}
	jobID := fs.Arg(0)

	if !*yes {
		ok, err := promptConfirm(fmt.Sprintf("Delete job %s and its artifacts? [y/N] ", jobID))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("delete cancelled")
			return nil
		}
	}

	client, _, err := newClient(*configPath, *apiURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()
	if err := client.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	fmt.Printf("job deleted: %s\n", jobID)
	return nil
}

func runQueue(args []string) error {
	fs := flag.NewFlagSet("queue", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path (default ~/.config/clipforge/config.yaml)")
	apiURL := fs.String("api", "", "API base URL override")
	asJSON := fs.Bool("json", false, "machine-readable output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, _, err := newClient(*configPath, *apiURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()
	stats, err := client.GetQueueStatus(ctx)
	if err != nil {
		return fmt.Errorf("get queue status: %w", err)
	}

	if *asJSON {
		return printJSON(stats)
	}

	fmt.Printf("Queue: %d pending, %d processing, %d completed, %d failed\n",
		stats.PendingJobs, stats.ProcessingJobs, stats.CompletedJobs, stats.FailedJobs)
	if stats.EstimatedWaitSeconds > 0 {
		fmt.Printf("Estimated wait: %s\n", formatETA(stats.EstimatedWaitSeconds))
	}
	return nil
}
