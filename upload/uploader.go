package upload

import (
	"context"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/processlink/processlink-files-step/upload/network"
)

const fileIDDisplayLength = 8

// Sender sends one request and returns its raw response.
type Sender interface {
	Send(ctx context.Context, params network.SendParams) (network.RawResponse, error)
}

// Uploader runs the upload pipeline: validate, encode, send, interpret.
type Uploader struct {
	client   Sender
	reporter *StatusReporter
	logger   log.Logger
	stats    *Stats
}

// NewUploader ...
func NewUploader(client Sender, reporter *StatusReporter, logger log.Logger) *Uploader {
	return &Uploader{
		client:   client,
		reporter: reporter,
		logger:   logger,
		stats:    NewStats(),
	}
}

// Stats returns the attempts recorded so far.
func (u *Uploader) Stats() *Stats {
	return u.stats
}

// Process uploads msg to the destination in cfg. It makes exactly one attempt.
//
// A validation failure returns a nil Outcome and no request is sent. Otherwise the
// forwarded Result and the Outcome are returned together with a non-nil error for every
// outcome other than *Success; the error is the Outcome itself.
func (u *Uploader) Process(ctx context.Context, cfg *Config, msg Message) (Result, Outcome, error) {
	u.reporter.Report(PhaseValidating, "validating...")

	req, err := Validate(cfg, msg, u.reporter)
	if err != nil {
		u.logger.Errorf("Upload rejected: %s", err)
		return Result{}, nil, err
	}

	body := Encode(req)

	u.reporter.Report(PhaseUploading, "uploading...")
	u.logger.Infof("Uploading %s (%d bytes) to %s", req.Filename, len(req.Payload), req.APIURL)

	startTime := time.Now()
	raw, err := u.client.Send(ctx, network.SendParams{
		URL: req.APIURL,
		Headers: map[string]string{
			"Content-Type":       body.ContentType(),
			network.SiteIDHeader: req.SiteID,
			network.APIKeyHeader: string(req.APIKey),
		},
		Body:    body.Bytes,
		Timeout: req.Timeout,
	})
	elapsed := time.Since(startTime)

	var outcome Outcome
	if err != nil {
		outcome = transportOutcome(err)
	} else {
		outcome = Interpret(raw)
	}

	_, succeeded := outcome.(*Success)
	u.stats.Update(elapsed, int64(len(body.Bytes)), succeeded)
	u.logger.TDebugf("Upload finished in %s", elapsed.Round(time.Millisecond))

	u.reportOutcome(outcome)

	result := NewResult(outcome)
	if succeeded {
		return result, outcome, nil
	}
	return result, outcome, outcome.(error)
}

func (u *Uploader) reportOutcome(outcome Outcome) {
	switch o := outcome.(type) {
	case *Success:
		u.reporter.Report(PhaseSuccess, "uploaded: "+displayFileID(o.FileID)+"...")
	case *APIError:
		u.reporter.Report(PhaseError, o.Message)
	case *TransportError:
		u.reporter.Report(PhaseError, "request failed")
	case *TimeoutError:
		u.reporter.Report(PhaseTimeout, "timeout")
	}
}

func displayFileID(fileID string) string {
	runes := []rune(fileID)
	if len(runes) > fileIDDisplayLength {
		runes = runes[:fileIDDisplayLength]
	}
	return string(runes)
}
