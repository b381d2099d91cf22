package downloader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

const engineLineBuf = 1024 * 1024

// RunEngine starts an external engine command and streams its merged
// stdout/stderr through onLine. The command runs in its own process group so
// cancellation also kills helper processes the engine spawned. Returns after
// the engine exits and all output has been parsed.
func (b *Base) RunEngine(ctx context.Context, cmd *exec.Cmd, onLine func(string)) error {
	// Set process group to allow killing children processes
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe error: %w", err)
	}

	lineChan := make(chan string, 100)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", cmd.Path, err)
	}

	// Merge stdout and stderr into lineChan
	go func() {
		defer close(lineChan)
		scanner := bufio.NewScanner(io.MultiReader(stdout, stderr))
		scanner.Buffer(make([]byte, 0, 64*1024), engineLineBuf)
		for scanner.Scan() {
			select {
			case lineChan <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	parseDone := make(chan struct{})
	go func() {
		defer close(parseDone)
		for line := range lineChan {
			onLine(line)
		}
	}()

	// End the command early on cancellation; its pipes close and the
	// drain below unblocks.
	waitDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			killEngine(cmd)
		case <-waitDone:
		}
	}()

	<-parseDone
	waitErr := cmd.Wait()
	close(waitDone)

	if cancelErr := b.CheckCancelled(ctx); cancelErr != nil {
		return cancelErr
	}
	if waitErr != nil {
		return fmt.Errorf("%s exited with failure: %w", filepath.Base(cmd.Path), waitErr)
	}
	return nil
}

// killEngine signals the command's whole process group, catching helper
// processes like ffmpeg that the engine spawned.
func killEngine(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		logging.E("Failed to kill process group %v: %v", cmd.Process.Pid, err)
	}
}
