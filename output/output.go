package output

import (
	"fmt"
	"strconv"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/goccy/go-json"
	"github.com/processlink/processlink-files-step/upload"
)

const (
	FileIDKey       = "PROCESSLINK_FILE_ID"
	StatusCodeKey   = "PROCESSLINK_STATUS_CODE"
	ResponseKey     = "PROCESSLINK_RESPONSE"
	UploadStatusKey = "PROCESSLINK_UPLOAD_STATUS"
)

// Exporter ...
type Exporter struct {
	cmdFactory command.Factory
}

// NewExporter ...
func NewExporter(cmdFactory command.Factory) Exporter {
	return Exporter{cmdFactory: cmdFactory}
}

// ExportOutput is used for exposing values for other steps.
// Regular env vars are isolated between steps, so instead of calling `os.Setenv()`, use this to explicitly expose
// a value for subsequent steps.
func (e *Exporter) ExportOutput(key, value string) error {
	cmd := e.cmdFactory.Create("envman", []string{"add", "--key", key, "--value", value}, nil)
	return runExport(cmd)
}

// ExportOutputNoExpand works like ExportOutput but does not expand environment variables in the value.
// Response bodies come from the remote API, so they are always exported this way.
func (e *Exporter) ExportOutputNoExpand(key, value string) error {
	cmd := e.cmdFactory.Create("envman", []string{"add", "--key", key, "--value", value, "--no-expand"}, nil)
	return runExport(cmd)
}

// ExportResult exposes the forwarded upload result. status is success, error or timeout.
func (e *Exporter) ExportResult(result upload.Result, status string) error {
	response, err := json.Marshal(result.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize upload response: %w", err)
	}

	outputs := []struct {
		key      string
		value    string
		noExpand bool
	}{
		{key: FileIDKey, value: result.FileID},
		{key: StatusCodeKey, value: strconv.Itoa(result.StatusCode)},
		{key: ResponseKey, value: string(response), noExpand: true},
		{key: UploadStatusKey, value: status},
	}
	for _, o := range outputs {
		export := e.ExportOutput
		if o.noExpand {
			export = e.ExportOutputNoExpand
		}
		if err := export(o.key, o.value); err != nil {
			return fmt.Errorf("failed to export %s: %w", o.key, err)
		}
	}
	return nil
}

func runExport(cmd command.Command) error {
	out, err := cmd.RunAndReturnTrimmedCombinedOutput()
	if err != nil {
		return fmt.Errorf("exporting output with envman failed: %s, output: %s", err, out)
	}
	return nil
}
