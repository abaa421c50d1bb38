package upload

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const boundaryPrefix = "----ProcessLinkFiles"

// Body is an encoded multipart/form-data request body holding a single file part.
type Body struct {
	Boundary string
	Bytes    []byte
}

// ContentType is the Content-Type header value matching the body.
func (b Body) ContentType() string {
	return "multipart/form-data; boundary=" + b.Boundary
}

// Encode writes req.Payload as the "file" part of a new multipart body. Every call uses a
// fresh boundary. The filename is written as is, without escaping quotes, and the payload
// is not scanned for the boundary.
func Encode(req Request) Body {
	boundary := newBoundary(time.Now())

	header := fmt.Sprintf("--%s\r\n"+
		"Content-Disposition: form-data; name=\"file\"; filename=\"%s\"\r\n"+
		"Content-Type: application/octet-stream\r\n\r\n", boundary, req.Filename)
	footer := fmt.Sprintf("\r\n--%s--\r\n", boundary)

	var buf bytes.Buffer
	buf.Grow(len(header) + len(req.Payload) + len(footer))
	buf.WriteString(header)
	buf.Write(req.Payload)
	buf.WriteString(footer)

	return Body{
		Boundary: boundary,
		Bytes:    buf.Bytes(),
	}
}

func newBoundary(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%d%s", boundaryPrefix, now.UnixMilli(), suffix)
}
