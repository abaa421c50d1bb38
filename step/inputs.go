package step

import "github.com/processlink/processlink-files-step/stepconf"

// DefaultAPIKeyEnv is the env var read for the API key when api_key_env is not set.
const DefaultAPIKeyEnv = "PROCESSLINK_API_KEY"

// inputDefaults are the step definition defaults of the inputs the host may leave empty.
var inputDefaults = map[string]string{
	"api_key_env": DefaultAPIKeyEnv,
	"compression": "none",
	"verbose":     "no",
}

// inputEnv falls back to inputDefaults for empty inputs.
type inputEnv struct {
	stepconf.EnvGetter
}

func (e inputEnv) Get(key string) string {
	if value := e.EnvGetter.Get(key); value != "" {
		return value
	}
	return inputDefaults[key]
}

// Inputs are the step inputs, parsed from the environment.
type Inputs struct {
	SiteID    string `env:"site_id"`
	APIKeyEnv string `env:"api_key_env"`
	APIURL    string `env:"api_url"`
	// FilePath is a local path, a file:// path, a glob matching exactly one file or an http(s) URL.
	FilePath string `env:"file_path"`
	// Content is uploaded as text when FilePath is empty.
	Content string `env:"content"`
	// Filename is a template, see the keytemplate package.
	Filename    string `env:"filename"`
	TimeoutMs   int    `env:"timeout_ms"`
	Compression string `env:"compression,opt[none,zstd]"`
	// CompressionLevel is the zstd level, between 1 and 19. 0 means the default level (3).
	CompressionLevel int  `env:"compression_level"`
	Verbose          bool `env:"verbose,opt[yes,no]"`
}

// UploadInput is the information that comes from the caller of the step. Non-zero fields take precedence over the
// step inputs.
type UploadInput struct {
	// StepID identifies the calling step. Used for logging events.
	StepID    string
	FilePath  string
	Filename  string
	TimeoutMs int
	Verbose   bool
}

func (i *Inputs) applyOverrides(input UploadInput) {
	if input.FilePath != "" {
		i.FilePath = input.FilePath
	}
	if input.Filename != "" {
		i.Filename = input.Filename
	}
	if input.TimeoutMs != 0 {
		i.TimeoutMs = input.TimeoutMs
	}
	if input.Verbose {
		i.Verbose = true
	}
}
