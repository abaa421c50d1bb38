package analytics

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

type TrackerFactory func(log.Logger, ...analytics.Properties) analytics.Tracker

const (
	StepExecutionIDEnvKey = "BITRISE_STEP_EXECUTION_ID"
	StepExecutionID       = "step_execution_id"

	eventValidationFailed = "step_processlink_upload_validation_failed"
	eventUploadFinished   = "step_processlink_upload_finished"
)

// UploadTracker records one analytics event per upload.
type UploadTracker struct {
	tracker analytics.Tracker
}

func NewUploadTracker(stepID string, repository env.Repository, logger log.Logger, trackerFactory TrackerFactory) UploadTracker {
	p := analytics.Properties{
		"step_id":     stepID,
		"build_slug":  repository.Get("BITRISE_BUILD_SLUG"),
		"app_slug":    repository.Get("BITRISE_APP_SLUG"),
		"workflow":    repository.Get("BITRISE_TRIGGERED_WORKFLOW_ID"),
		"is_pr_build": repository.Get("IS_PR") == "true",
	}
	if stepExecutionID := repository.Get(StepExecutionIDEnvKey); stepExecutionID != "" {
		p[StepExecutionID] = stepExecutionID
	}
	return UploadTracker{tracker: trackerFactory(logger, p)}
}

func NewDefaultUploadTracker(stepID string, repository env.Repository, logger log.Logger) UploadTracker {
	return NewUploadTracker(stepID, repository, logger, analytics.NewDefaultTracker)
}

func (t UploadTracker) LogValidationFailed(reason string) {
	t.tracker.Enqueue(eventValidationFailed, analytics.Properties{
		"reason": reason,
	})
}

// LogUploadFinished records a finished attempt; status is success, error or timeout.
func (t UploadTracker) LogUploadFinished(status string, statusCode int, uploadTime time.Duration, sizeBytes int64) {
	t.tracker.Enqueue(eventUploadFinished, analytics.Properties{
		"status":            status,
		"status_code":       statusCode,
		"upload_time_ms":    uploadTime.Milliseconds(),
		"upload_size_bytes": sizeBytes,
	})
}

// Wait blocks until every queued event is sent.
func (t UploadTracker) Wait() {
	t.tracker.Wait()
}
