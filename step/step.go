// Package step runs a Process Link Files upload as a CI step: inputs come from the environment, status goes to the
// build log and the result is exported for subsequent steps through envman.
package step

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/docker/go-units"
	"github.com/processlink/processlink-files-step/analytics"
	"github.com/processlink/processlink-files-step/compression"
	"github.com/processlink/processlink-files-step/keytemplate"
	"github.com/processlink/processlink-files-step/output"
	"github.com/processlink/processlink-files-step/secretkeys"
	"github.com/processlink/processlink-files-step/stepconf"
	"github.com/processlink/processlink-files-step/upload"
	"github.com/processlink/processlink-files-step/upload/network"
)

const (
	statusSuccess = "success"
	statusError   = "error"
	statusTimeout = "timeout"
)

// Runner ...
type Runner struct {
	envRepo           env.Repository
	logger            log.Logger
	inputParser       stepconf.InputParser
	fileProvider      stepconf.FileProvider
	templates         keytemplate.Model
	cmdFactory        command.Factory
	dependencyChecker compression.DependencyChecker
	exporter          output.Exporter
	sender            upload.Sender
	trackerFactory    analytics.TrackerFactory
	reporterConfig    upload.StatusReporterConfig
}

// NewRunner creates a new step runner. `sender` can be nil, unless you want to provide a custom `upload.Sender`
// implementation.
func NewRunner(envRepo env.Repository, logger log.Logger, cmdFactory command.Factory, sender upload.Sender) *Runner {
	if sender == nil {
		sender = network.NewClient(logger)
	}
	return &Runner{
		envRepo:           envRepo,
		logger:            logger,
		inputParser:       stepconf.NewInputParser(inputEnv{EnvGetter: envRepo}),
		fileProvider:      stepconf.NewFileProvider(stepconf.NewDownloader(logger), pathutil.NewPathModifier()),
		templates:         keytemplate.NewModel(envRepo, logger),
		cmdFactory:        cmdFactory,
		dependencyChecker: compression.NewBinaryChecker(logger, envRepo),
		exporter:          output.NewExporter(cmdFactory),
		sender:            sender,
		reporterConfig:    upload.DefaultStatusReporterConfig(),
	}
}

// Run uploads the configured payload once and exports the result. The outputs are exported for failed uploads
// too, before the error is returned.
func (r *Runner) Run(ctx context.Context, input UploadInput) error {
	r.logger.TDebugf("Upload step start")
	defer func() {
		r.logger.TDebugf("Upload step done")
	}()

	var inputs Inputs
	if err := r.inputParser.Parse(&inputs); err != nil {
		return fmt.Errorf("failed to parse inputs: %w", err)
	}
	inputs.applyOverrides(input)
	stepconf.Print(inputs)
	r.logger.Println()
	r.logger.EnableDebugLog(inputs.Verbose)

	tracker := r.newTracker(input.StepID)
	defer tracker.Wait()

	credentials := secretkeys.NewProvider(r.envRepo, map[string]string{upload.APIKeySecret: inputs.APIKeyEnv})
	if credentials.Secret(upload.APIKeySecret) != "" && !credentials.Registered(upload.APIKeySecret) {
		r.logger.Warnf("%s is not a registered secret, its value may show up in build logs", inputs.APIKeyEnv)
	}

	cfg, msg, err := r.createMessage(ctx, inputs)
	if err != nil {
		return err
	}
	cfg.SiteID = inputs.SiteID
	cfg.Credentials = credentials
	cfg.APIURL = inputs.APIURL
	cfg.Timeout = time.Duration(inputs.TimeoutMs) * time.Millisecond

	reporter := upload.NewStatusReporter(r.reporterConfig, newLogObserver(r.logger))
	defer reporter.Close()
	uploader := upload.NewUploader(r.sender, reporter, r.logger)

	result, outcome, uploadErr := uploader.Process(ctx, cfg, msg)

	status := uploadStatus(outcome)
	if outcome == nil {
		tracker.LogValidationFailed(validationLabel(uploadErr))
		result = upload.Result{Payload: map[string]interface{}{"error": uploadErr.Error()}}
	} else {
		stats := uploader.Stats()
		tracker.LogUploadFinished(status, result.StatusCode, stats.Average(), stats.SentBytes())
	}

	if err := r.exporter.ExportResult(result, status); err != nil {
		if uploadErr == nil {
			return err
		}
		r.logger.Warnf("Failed to export outputs: %s", err)
	}

	if uploadErr != nil {
		return fmt.Errorf("upload failed: %w", uploadErr)
	}

	r.logger.Println()
	r.logger.Donef("File ID: %s", result.FileID)
	return nil
}

// newTracker sends events through the default analytics tracker unless a factory is set.
func (r *Runner) newTracker(stepID string) analytics.UploadTracker {
	if r.trackerFactory == nil {
		return analytics.NewDefaultUploadTracker(stepID, r.envRepo, r.logger)
	}
	return analytics.NewUploadTracker(stepID, r.envRepo, r.logger, r.trackerFactory)
}

// createMessage loads the payload and works out the filename. The returned Config only holds the filename derived
// from the payload source.
func (r *Runner) createMessage(ctx context.Context, inputs Inputs) (*upload.Config, upload.Message, error) {
	algorithm, err := compression.ParseAlgorithm(inputs.Compression)
	if err != nil {
		return nil, upload.Message{}, fmt.Errorf("failed to parse inputs: %w", err)
	}
	level := inputs.CompressionLevel
	if level == 0 {
		level = compression.DefaultLevel
	}

	cfg := &upload.Config{}
	msg := upload.Message{}

	switch {
	case inputs.FilePath != "":
		payload, sourceName, err := r.readFile(ctx, inputs.FilePath)
		if err != nil {
			return nil, upload.Message{}, err
		}
		cfg.Filename = sourceName
		msg.Payload = payload
	case inputs.Content != "":
		msg.Payload = inputs.Content
	}

	if inputs.Filename != "" {
		filename, err := r.templates.Evaluate(inputs.Filename)
		if err != nil {
			return nil, upload.Message{}, fmt.Errorf("failed to evaluate filename template: %w", err)
		}
		r.logger.Debugf("Filename template evaluated to %s", filename)
		msg.Filename = filename
	}

	if size := payloadSize(msg.Payload); size >= 0 {
		r.logger.Printf("Payload size: %s", units.HumanSizeWithPrecision(float64(size), 3))
	}

	if algorithm == compression.None || msg.Payload == nil {
		return cfg, msg, nil
	}

	var data []byte
	switch p := msg.Payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	}

	compressionStartTime := time.Now()
	compressed, err := compression.NewCompressor(r.logger, r.cmdFactory, r.dependencyChecker).Compress(data, algorithm, level)
	if err != nil {
		return nil, upload.Message{}, err
	}
	r.logger.Donef("Payload compressed to %s in %s",
		units.HumanSizeWithPrecision(float64(len(compressed)), 3), time.Since(compressionStartTime).Round(time.Millisecond))

	msg.Payload = compressed
	switch {
	case msg.Filename != "":
		msg.Filename += algorithm.Extension()
	case cfg.Filename != "":
		cfg.Filename += algorithm.Extension()
	default:
		msg.Filename = upload.DefaultFilename + algorithm.Extension()
	}
	return cfg, msg, nil
}

func (r *Runner) readFile(ctx context.Context, path string) ([]byte, string, error) {
	r.logger.Infof("Reading payload from %s", path)

	reader, name, err := r.fileProvider.Contents(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			r.logger.Warnf("Failed to close %s: %s", path, err)
		}
	}()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return payload, name, nil
}

func payloadSize(payload interface{}) int {
	switch p := payload.(type) {
	case []byte:
		return len(p)
	case string:
		return len(p)
	default:
		return -1
	}
}

func uploadStatus(outcome upload.Outcome) string {
	switch outcome.(type) {
	case *upload.Success:
		return statusSuccess
	case *upload.TimeoutError:
		return statusTimeout
	default:
		return statusError
	}
}

func validationLabel(err error) string {
	var configErr *upload.ConfigError
	if errors.As(err, &configErr) {
		return configErr.Label
	}
	var payloadErr *upload.PayloadError
	if errors.As(err, &payloadErr) {
		return payloadErr.Label
	}
	return err.Error()
}
