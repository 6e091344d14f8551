package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysUsecase "github.com/allisson/fieldcrypt/internal/keys/usecase"
)

// RunPreloadKeys fetches every known key-name and prints which loaded. It
// fails when any key could not be loaded so scripts can gate deploys on it.
func RunPreloadKeys(
	ctx context.Context,
	keyDirectory keysUsecase.KeyDirectory,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	report := keyDirectory.PreloadKeys(ctx)

	if err := writeOutput(writer, format, report, func(w io.Writer) error {
		for _, name := range report.Loaded {
			if _, err := fmt.Fprintf(w, "loaded  %s\n", name); err != nil {
				return err
			}
		}
		for _, name := range report.Failed {
			if _, err := fmt.Fprintf(w, "failed  %s\n", name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if len(report.Failed) > 0 {
		logger.Error("key preload incomplete", slog.Int("failed", len(report.Failed)))
		return fmt.Errorf("failed to load %d of %d keys", len(report.Failed), len(report.Failed)+len(report.Loaded))
	}
	return nil
}
