package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandTask runs a long-lived build command such as `latexmk -pvc` in dir.
// When the command exits the task returns, which ends watch mode. A command
// killed because ctx was cancelled is not reported as an error.
func CommandTask(argv []string, dir string, stdout, stderr io.Writer, logger *slog.Logger) Task {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) error {
		if len(argv) == 0 {
			return errors.New("watch: empty build command")
		}
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = dir
		cmd.Stdout = stdout
		cmd.Stderr = stderr

		logger.Info("watch: build command started", slog.String("command", strings.Join(argv, " ")))
		err := cmd.Run()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("watch: build command: %w", err)
		}
		logger.Info("watch: build command exited")
		return nil
	}
}
