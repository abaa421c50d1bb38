package step

import (
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/processlink/processlink-files-step/upload"
)

// logObserver shows status changes in the build log.
type logObserver struct {
	logger log.Logger
}

func newLogObserver(logger log.Logger) logObserver {
	return logObserver{logger: logger}
}

func (o logObserver) StatusChanged(event upload.StatusEvent) {
	switch event.Phase {
	case upload.PhaseIdle:
		o.logger.Debugf("Status cleared")
	case upload.PhaseValidating, upload.PhaseUploading:
		o.logger.Printf("[%s] %s", event.Phase, event.Label)
	case upload.PhaseSuccess:
		o.logger.Donef("[%s] %s", event.Phase, event.Label)
	default:
		o.logger.Warnf("[%s] %s", event.Phase, event.Label)
	}
}
