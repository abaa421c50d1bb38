package upload

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Layout(t *testing.T) {
	body := Encode(Request{Payload: []byte("hello"), Filename: "a.txt"})

	want := "--" + body.Boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\n" +
		"Content-Type: application/octet-stream\r\n\r\n" +
		"hello" +
		"\r\n--" + body.Boundary + "--\r\n"
	assert.Equal(t, want, string(body.Bytes))
	assert.Equal(t, "multipart/form-data; boundary="+body.Boundary, body.ContentType())
}

func TestEncode_RoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"empty":       {},
		"text":        []byte("a,b,c\n1,2,3\n"),
		"binary":      {0x00, 0x01, 0xfe, 0xff, '\r', '\n', '-', '-'},
		"crlf inside": []byte("line1\r\n--not-a-boundary\r\nline2"),
		"large":       bytes.Repeat([]byte{0xab, 0xcd}, 1<<16),
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			body := Encode(Request{Payload: payload, Filename: "data.bin"})

			_, params, err := mime.ParseMediaType(body.ContentType())
			require.NoError(t, err)
			reader := multipart.NewReader(bytes.NewReader(body.Bytes), params["boundary"])

			part, err := reader.NextPart()
			require.NoError(t, err)
			assert.Equal(t, "file", part.FormName())
			assert.Equal(t, "data.bin", part.FileName())
			assert.Equal(t, "application/octet-stream", part.Header.Get("Content-Type"))

			got, err := io.ReadAll(part)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(payload, got), "payload changed by the round trip")

			_, err = reader.NextPart()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestEncode_FilenameNotEscaped(t *testing.T) {
	body := Encode(Request{Payload: []byte("x"), Filename: `say "hi".txt`})

	assert.Contains(t, string(body.Bytes), `filename="say "hi".txt"`)
}

func TestNewBoundary(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	first := newBoundary(now)
	second := newBoundary(now)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, boundaryPrefix+"1700000000123"))
	assert.LessOrEqual(t, len(first), 70)
	for _, r := range strings.TrimPrefix(first, boundaryPrefix) {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'), "unexpected boundary rune %q", r)
	}
}

func TestEncode_FreshBoundaryPerCall(t *testing.T) {
	req := Request{Payload: []byte("same"), Filename: "same.txt"}

	assert.NotEqual(t, Encode(req).Boundary, Encode(req).Boundary)
}
