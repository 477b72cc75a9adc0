// Package cmdsource binds a camera whose frames are produced by an external
// command. The command writes raw frames of a fixed size to its standard
// output, back to back; the binding decodes them in arrival order. Vendor
// SDK tools and gstreamer pipelines can be wrapped this way without cgo.
package cmdsource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/google/shlex"

	"github.com/camsync/camsync/internal/logging"
)

var (
	errInvalidCommand = errors.New("invalid command")
	errNotRunning     = errors.New("acquisition not running")
)

var logger = logging.NewLogger("camsync/cmdsource")

// defaultStopTimeout bounds how long a command may take to exit after an
// interrupt before it is killed.
const defaultStopTimeout = 3 * time.Second

// process is one run of the source command.
type process struct {
	cmd    *exec.Cmd
	frames chan []byte
	// err is valid once frames is closed.
	err  error
	done chan error
}

func splitCommand(command string) ([]string, error) {
	args, err := shlex.Split(command) // respects quotes and comments
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCommand, err)
	}
	if len(args) == 0 || args[0] == "" {
		return nil, errInvalidCommand
	}
	return args, nil
}

// environ exports the acquisition settings so a command can read them
// instead of hardcoding them.
func environ(vars map[string]interface{}) []string {
	env := os.Environ()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env = append(env, fmt.Sprintf("CAMSYNC_%s=%v", name, vars[name]))
	}
	return env
}

// start runs args and reads frames of frameSize bytes from its output. At
// most depth frames are held; older ones are discarded while the reader is
// behind, like a camera buffer in NewestFirst mode.
func start(args []string, env []string, frameSize, depth int) (*process, error) {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = env

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		cmd:    cmd,
		frames: make(chan []byte, depth),
		done:   make(chan error, 1),
	}

	go func() {
		prefix := fmt.Sprintf("(%s stderr): ", args[0])
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debug(prefix + scanner.Text())
		}
	}()

	go func() {
		defer close(p.frames)
		for {
			buf := make([]byte, frameSize)
			if _, err := io.ReadFull(stdout, buf); err != nil {
				if err == io.ErrUnexpectedEOF {
					err = fmt.Errorf("truncated frame: %w", err)
				}
				p.err = err
				p.done <- cmd.Wait()
				return
			}
			select {
			case p.frames <- buf:
			default:
				select {
				case <-p.frames:
				default:
				}
				p.frames <- buf
			}
		}
	}()

	return p, nil
}

// stop interrupts the command and kills it if it has not exited within
// timeout.
func (p *process) stop(timeout time.Duration) error {
	if p.cmd.Process == nil {
		return nil
	}
	_ = p.cmd.Process.Signal(os.Interrupt)

	select {
	case <-p.done:
		return nil
	case <-time.After(timeout):
		logger.Warnf("%s did not exit after interrupt, killing", p.cmd.Path)
		return p.cmd.Process.Kill()
	}
}
