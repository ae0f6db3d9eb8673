package cli

import (
	"flag"
	"os"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/stubserver"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	stepInterval := fs.Duration("step-interval", 3*time.Second, "simulated pipeline step duration")
	jwtSecret := fs.String("jwt-secret", os.Getenv("CLIPFORGE_STUB_JWT_SECRET"), "enable bearer auth with this HS256 secret")
	configPath := fs.String("config", "", "config file path (default ~/.config/clipforge/config.yaml)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, cleanup := config.SetupLogger(cfg.LogFile, cfg.Level(), false)
	defer func() { _ = cleanup() }()

	srv := stubserver.New(stubserver.Options{
		Addr:         *addr,
		StepInterval: *stepInterval,
		JWTSecret:    *jwtSecret,
		Logger:       log,
	})
	return srv.Run()
}
