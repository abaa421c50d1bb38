// Package upload sends one file to the Process Link Files API and turns the response into
// an Outcome, reporting progress through a StatusReporter.
package upload

import (
	"time"

	"github.com/processlink/processlink-files-step/stepconf"
)

const (
	// DefaultAPIURL is the production upload endpoint.
	DefaultAPIURL = "https://files.processlink.com.au/api/upload"
	// DefaultFilename is used when neither the message nor the config names the file.
	DefaultFilename = "file.bin"
	// DefaultTimeout bounds a single upload attempt.
	DefaultTimeout = 30 * time.Second

	// APIKeySecret is the name under which Config.Credentials holds the API key.
	APIKeySecret = "api_key"
)

// SecretProvider hands out stored secrets by name.
type SecretProvider interface {
	Secret(name string) stepconf.Secret
}

// Config is the static destination of uploads.
type Config struct {
	SiteID      string
	Credentials SecretProvider
	APIURL      string
	Filename    string
	Timeout     time.Duration
}

// Message is one inbound upload: Payload must be a []byte or a string.
type Message struct {
	Payload  interface{}
	Filename string
}

// Request is a validated upload, ready to be encoded.
type Request struct {
	Payload  []byte
	Filename string
	SiteID   string
	APIKey   stepconf.Secret
	APIURL   string
	Timeout  time.Duration
}
