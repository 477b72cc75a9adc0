package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camsync/camsync/pkg/frame"
)

const rig = `
output_dir: /data/session
backend: ffmpeg
command_timeout: 2s
ffmpeg:
  crf: 23
  extra_args: "-preset veryfast"
cameras:
  - identity: "19281234"
    role: primary
    framerate: 60
    exposure: 2000
  - identity: "#1"
    role: secondary
    color: true
    binsize: 2
    roi: {x: 8, y: 4, width: 100, height: 80}
    output: side.camraw
    backend: native
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(rig))
	require.NoError(t, err)

	assert.Equal(t, "/data/session", cfg.OutputDir)
	assert.Equal(t, 2*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 30*time.Second, cfg.StopTimeout)
	assert.Equal(t, 256, cfg.QueueSize)
	assert.Equal(t, 23, cfg.FFmpegOptions().CRF)
	assert.Equal(t, "ffmpeg", cfg.FFmpegOptions().Binary)
	require.Len(t, cfg.Cameras, 2)

	primary, side := cfg.Cameras[0], cfg.Cameras[1]
	assert.Equal(t, map[string]interface{}{
		"color":     false,
		"framerate": 60.0,
		"exposure":  2000.0,
	}, primary.Properties())
	assert.Equal(t, map[string]interface{}{
		"color":   true,
		"binsize": 2,
		"roi":     frame.ROI{X: 8, Y: 4, Width: 100, Height: 80},
	}, side.Properties())

	assert.Equal(t, "/data/session/19281234.mp4", cfg.OutputPath(primary))
	assert.Equal(t, "/data/session/side.camraw", cfg.OutputPath(side))
	assert.Equal(t, "native", cfg.BackendOf(side))
}

func TestDefaultOutputPath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "device2.camraw", cfg.OutputPath(CameraConfig{Identity: "#2"}))
	assert.Equal(t, "/abs/x.camraw", cfg.OutputPath(CameraConfig{Identity: "a", Output: "/abs/x.camraw"}))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CAMSYNC_COMMAND_TIMEOUT", "750ms")
	t.Setenv("CAMSYNC_STOP_TIMEOUT", "1m")
	t.Setenv("CAMSYNC_BACKEND", "native")
	t.Setenv("CAMSYNC_OUTPUT_DIR", "/tmp/out")

	cfg, err := Parse([]byte(rig))
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.CommandTimeout)
	assert.Equal(t, time.Minute, cfg.StopTimeout)
	assert.Equal(t, "native", cfg.Backend)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Setenv("CAMSYNC_STOP_TIMEOUT", "soon")
	_, err := Parse([]byte(rig))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"NoCameras": `cameras: []`,
		"NoPrimary": `
cameras:
  - {identity: a, role: secondary}`,
		"TwoPrimaries": `
cameras:
  - {identity: a, role: primary}
  - {identity: b, role: primary}`,
		"DuplicateIdentity": `
cameras:
  - {identity: a, role: primary}
  - {identity: a, role: secondary}`,
		"MissingIdentity": `
cameras:
  - {role: primary}`,
		"UnknownRole": `
cameras:
  - {identity: a, role: leader}`,
		"UnknownBackend": `
backend: betamax
cameras:
  - {identity: a, role: primary}`,
		"UnknownCameraBackend": `
cameras:
  - {identity: a, role: primary, backend: vhs}`,
		"SourceWithoutCommand": `
sources:
  - {identity: s, width: 4, height: 2}
cameras:
  - {identity: s, role: primary}`,
		"SourceWithoutSize": `
sources:
  - {identity: s, command: cat x.raw}
cameras:
  - {identity: s, role: primary}`,
		"SourceFormat": `
sources:
  - {identity: s, command: cat x.raw, width: 4, height: 2, format: RGB8}
cameras:
  - {identity: s, role: primary}`,
		"NegativeTimeout": `
command_timeout: -1s
cameras:
  - {identity: a, role: primary}`,
	}

	for name, doc := range cases {
		doc := doc
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestSources(t *testing.T) {
	cfg, err := Parse([]byte(`
stop_timeout: 5s
sources:
  - identity: pipe0
    command: gst-launch-1.0 -q videotestsrc ! fdsink
    width: 320
    height: 240
    format: YUY2
    framerate: 15
cameras:
  - {identity: pipe0, role: primary}
`))
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)

	opts := cfg.CommandOptions(cfg.Sources[0])
	assert.Equal(t, "gst-launch-1.0 -q videotestsrc ! fdsink", opts.Command)
	assert.Equal(t, 320, opts.Width)
	assert.Equal(t, frame.FormatYUY2, opts.Format)
	assert.Equal(t, 15.0, opts.FrameRate)
	assert.Equal(t, 5*time.Second, opts.StopTimeout)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Cameras, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
