// Package ffmpeg is the general-purpose multimedia recording backend. Frames
// are piped as raw video to an ffmpeg process that encodes them with
// libx264.
package ffmpeg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/shlex"

	"github.com/camsync/camsync/internal/logging"
	"github.com/camsync/camsync/pkg/codec"
	"github.com/camsync/camsync/pkg/frame"
)

// Name is the registrar name of the backend.
const Name = "ffmpeg"

var logger = logging.NewLogger("camsync/ffmpeg")

var errClosed = errors.New("ffmpeg: writer is closed")

// Options tunes the encoder.
type Options struct {
	// Binary is the ffmpeg executable. Defaults to "ffmpeg" from PATH.
	Binary string
	// CRF is the x264 constant rate factor. Defaults to 18.
	CRF int
	// ExtraArgs are output options appended before the output path, in
	// shell syntax, e.g. "-preset veryfast -tune zerolatency".
	ExtraArgs string
}

func init() {
	Configure(Options{})
}

// Configure replaces the options writers built through the registrar use.
func Configure(opts Options) {
	codec.Register(Name, func() codec.Writer { return New(opts) })
}

// Writer implements codec.Writer.
type Writer struct {
	opts Options

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr chan struct{}
	format frame.Format
	pix    []byte
}

// New creates an unopened writer.
func New(opts Options) *Writer {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.CRF == 0 {
		opts.CRF = 18
	}
	return &Writer{opts: opts}
}

func pixFmt(f frame.Format) string {
	if f == frame.FormatRGB8 {
		return "rgb24"
	}
	return "gray"
}

func (w *Writer) args(path string, s codec.Setting) ([]string, error) {
	extra, err := shlex.Split(w.opts.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: invalid extra arguments: %w", err)
	}

	args := []string{
		"-y",
		"-loglevel", "warning",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-s", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-r", strconv.FormatFloat(s.FrameRate, 'f', -1, 64),
		"-pix_fmt", pixFmt(s.Format),
		"-i", "-",
		"-an",
		"-vcodec", "libx264",
		"-crf", strconv.Itoa(w.opts.CRF),
		"-pix_fmt", "yuv420p",
	}
	if s.BitRate > 0 {
		args = append(args, "-maxrate", strconv.Itoa(s.BitRate), "-bufsize", strconv.Itoa(2*s.BitRate))
	}
	args = append(args, extra...)
	return append(args, path), nil
}

func (w *Writer) Open(path string, s codec.Setting) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cmd != nil {
		return fmt.Errorf("ffmpeg: already open")
	}
	args, err := w.args(path, s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	cmd := exec.Command(w.opts.Binary, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg: start %s: %w", w.opts.Binary, err)
	}
	logger.Debugf("started %s %v", w.opts.Binary, args)

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debugf("%s: %s", filepath.Base(path), scanner.Text())
		}
	}()

	w.cmd, w.stdin, w.stderr, w.format = cmd, stdin, done, s.Format
	return nil
}

func (w *Writer) Write(rec frame.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stdin == nil {
		return errClosed
	}
	w.pix = frame.Raw(w.pix, rec.Image, w.format)
	_, err := w.stdin.Write(w.pix)
	return err
}

// Close flushes the pipe and waits for ffmpeg to finalize the container.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cmd == nil {
		return nil
	}
	err := w.stdin.Close()
	<-w.stderr
	if werr := w.cmd.Wait(); werr != nil {
		err = fmt.Errorf("ffmpeg: %w", werr)
	}
	w.cmd, w.stdin = nil, nil
	return err
}
