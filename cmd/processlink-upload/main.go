package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/processlink/processlink-files-step/step"
	"github.com/spf13/cobra"
)

const stepID = "processlink-files-upload"

// runFunc runs one upload; replaced in tests.
type runFunc func(ctx context.Context, input step.UploadInput) error

func newRootCmd(run runFunc) *cobra.Command {
	var input step.UploadInput

	cmd := &cobra.Command{
		Use:   "processlink-upload",
		Short: "Upload a file to Process Link Files",
		Long: "Uploads a single file to the Process Link Files API.\n" +
			"Inputs are read from the environment (site_id, file_path, content, filename, timeout_ms, ...);\n" +
			"flags override them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			input.StepID = stepID
			return run(cmd.Context(), input)
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&input.FilePath, "file", "f", "", "File to upload: local path, glob or http(s) URL")
	cmd.Flags().StringVarP(&input.Filename, "filename", "n", "", "Filename sent to the API, may be a template")
	cmd.Flags().IntVarP(&input.TimeoutMs, "timeout", "t", 0, "Request timeout in milliseconds")
	cmd.Flags().BoolVarP(&input.Verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func main() {
	logger := log.NewLogger()
	envRepo := env.NewRepository()
	runner := step.NewRunner(envRepo, logger, command.NewFactory(envRepo), nil)

	rootCmd := newRootCmd(runner.Run)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
