// Command camsync records a synchronized session from a rig description.
//
//	camsync -config rig.yaml -duration 10s
//	camsync -dummy -duration 2s
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camsync/camsync"
	"github.com/camsync/camsync/internal/config"
	"github.com/camsync/camsync/pkg/codec/ffmpeg"
	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/cmdsource"
	_ "github.com/camsync/camsync/pkg/codec/rawlog"   // This is required to use the native backend
	_ "github.com/camsync/camsync/pkg/driver/camera" // This is required to register camera adapter
	_ "github.com/camsync/camsync/pkg/driver/screen" // This is required to register screen adapter
)

func main() {
	configPath := flag.String("config", "", "rig description (YAML)")
	duration := flag.Duration("duration", 5*time.Second, "recording length; Ctrl+C stops early")
	dummy := flag.Bool("dummy", false, "use synthetic devices")
	list := flag.Bool("list", false, "list devices and exit")
	flag.Parse()

	if *list {
		for _, d := range camsync.EnumerateDevices(nil) {
			fmt.Printf("%-12s %-10s %s\n", d.Identity, d.DeviceType, d.Label)
		}
		return
	}

	if err := run(*configPath, *dummy, *duration); err != nil {
		fmt.Fprintln(os.Stderr, "camsync:", err)
		os.Exit(1)
	}
}

// run records one session. Devices are released before it returns, also
// when priming or triggering fails.
func run(configPath string, dummy bool, duration time.Duration) (err error) {
	cfg, err := loadConfig(configPath, dummy)
	if err != nil {
		return err
	}
	ffmpeg.Configure(cfg.FFmpegOptions())
	if err := registerSources(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	rig, outputs, err := build(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := rig.Release(ctx); rerr != nil {
			fmt.Fprintln(os.Stderr, "camsync: release:", rerr)
			if err == nil {
				err = rerr
			}
		}
	}()

	if err := rig.Prime(ctx, outputs); err != nil {
		return err
	}
	if err := rig.Trigger(ctx); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	fmt.Printf("Recording for %s... Press Ctrl+c to stop\n", duration)
	select {
	case <-time.After(duration):
	case <-sigs:
	}

	results, err := rig.Stop(ctx)
	for _, r := range results {
		report(r)
	}
	return err
}

func loadConfig(path string, dummy bool) (*config.Config, error) {
	if path == "" && dummy {
		return config.Parse([]byte(`
dummy: true
cameras:
  - {identity: dummy0, role: primary}
  - {identity: dummy1, role: secondary}
`))
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Dummy = cfg.Dummy || dummy
	return cfg, nil
}

func registerSources(cfg *config.Config) error {
	for _, src := range cfg.Sources {
		id, err := driver.ParseIdentity(src.Identity)
		if err != nil {
			return err
		}
		if err := cmdsource.Register(driver.GetManager(), id, cfg.CommandOptions(src)); err != nil {
			return fmt.Errorf("source %s: %w", src.Identity, err)
		}
	}
	return nil
}

// build creates every camera of the rig, primary first in the result.
func build(cfg *config.Config) (*camsync.Coordinator, map[*camsync.Camera]camsync.Output, error) {
	var (
		primary     *camsync.Camera
		secondaries []*camsync.Camera
		created     []*camsync.Camera
	)
	outputs := make(map[*camsync.Camera]camsync.Output)
	cleanup := func() {
		for _, cam := range created {
			_ = cam.Release(context.Background())
		}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, nil, err
	}

	for _, cc := range cfg.Cameras {
		role := camsync.Secondary
		if cc.Role == "primary" {
			role = camsync.Primary
		}

		opts := []camsync.CameraOption{
			camsync.WithTimeouts(cfg.CommandTimeout, cfg.StopTimeout),
			camsync.WithQueueSize(cfg.QueueSize),
			camsync.WithBackend(cfg.Backend),
			camsync.WithTriggerLine(cfg.TriggerLine),
		}
		if cfg.Dummy {
			opts = append(opts, camsync.WithDummy())
		}
		for name, v := range cc.Properties() {
			opts = append(opts, camsync.WithProperty(name, v))
		}

		cam, err := camsync.NewCamera(cc.Identity, role, opts...)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("%s: %w", cc.Identity, err)
		}
		created = append(created, cam)
		outputs[cam] = camsync.Output{Path: cfg.OutputPath(cc), Backend: cfg.BackendOf(cc)}

		if role == camsync.Primary {
			primary = cam
		} else {
			secondaries = append(secondaries, cam)
		}
	}

	rig, err := camsync.NewCoordinator(primary, secondaries...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return rig, outputs, nil
}

func report(r camsync.Result) {
	n := len(r.Timestamps)
	gap := 0.0
	if n > 1 {
		gap = r.Timestamps[n-1] / float64(n-1)
	}
	status := "ok"
	if r.Err != nil {
		status = r.Err.Error()
	}
	fmt.Printf("%-24s %6d frames  %7.2f ms mean gap  %s\n", r.Camera, n, gap, status)
}
