package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"glidelink/internal/config"
	"glidelink/internal/web"
)

func main() {
	var configPath string
	var igcSummary string
	flag.StringVar(&configPath, "config", "./glidelink.yaml", "Path to YAML config")
	flag.StringVar(&igcSummary, "igc-summary", "", "Print a summary of an IGC file and exit")
	flag.Parse()

	if igcSummary != "" {
		if err := printIGCSummary(os.Stdout, igcSummary); err != nil {
			log.Fatalf("igc summary failed: %v", err)
		}
		return
	}

	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("glidelink starting config=%s links=%d", configPath, len(cfg.Links))

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("runtime init failed: %v", err)
	}
	defer rt.close()

	if err := rt.start(ctx); err != nil {
		log.Fatalf("runtime start failed: %v", err)
	}

	if cfg.Web.Listen != "" {
		go func() {
			log.Printf("web listening on %s", cfg.Web.Listen)
			err := web.Serve(ctx, cfg.Web.Listen, web.Deps{
				Board:   rt.board,
				Links:   rt.linkStats,
				Devices: rt.devices.Names,
				Logs:    logs,
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
	}

	rt.runTicks(ctx)
	log.Printf("glidelink stopping")
}
