package compression

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/klauspost/compress/zstd"
)

// Algorithm is the payload compression applied before upload.
type Algorithm string

const (
	None Algorithm = "none"
	Zstd Algorithm = "zstd"

	// DefaultLevel matches the zstd CLI default.
	DefaultLevel = 3
	MinLevel     = 1
	MaxLevel     = 19
)

// ParseAlgorithm ...
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", None:
		return None, nil
	case Zstd:
		return Zstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q, expected one of: none, zstd", s)
	}
}

// Extension is appended to the uploaded filename.
func (a Algorithm) Extension() string {
	if a == Zstd {
		return ".zst"
	}
	return ""
}

// DependencyChecker ...
type DependencyChecker interface {
	CheckDependencies() bool
}

// BinaryChecker looks for the zstd binary on PATH.
type BinaryChecker struct {
	logger  log.Logger
	envRepo env.Repository
}

// NewBinaryChecker ...
func NewBinaryChecker(logger log.Logger, envRepo env.Repository) *BinaryChecker {
	return &BinaryChecker{
		logger:  logger,
		envRepo: envRepo,
	}
}

// CheckDependencies ...
func (bc *BinaryChecker) CheckDependencies() bool {
	cmdFactory := command.NewFactory(bc.envRepo)
	cmd := cmdFactory.Create("which", []string{"zstd"}, nil)
	bc.logger.Debugf("$ %s", cmd.PrintableCommandArgs())

	_, err := cmd.RunAndReturnTrimmedCombinedOutput()
	return err == nil
}

// Compressor compresses payloads in memory, with the installed zstd binary when there is one.
type Compressor struct {
	logger            log.Logger
	cmdFactory        command.Factory
	dependencyChecker DependencyChecker
}

// NewCompressor ...
func NewCompressor(logger log.Logger, cmdFactory command.Factory, dependencyChecker DependencyChecker) *Compressor {
	return &Compressor{
		logger:            logger,
		cmdFactory:        cmdFactory,
		dependencyChecker: dependencyChecker,
	}
}

// Compress returns data compressed with algorithm at the given zstd level.
func (c *Compressor) Compress(data []byte, algorithm Algorithm, level int) ([]byte, error) {
	if algorithm != Zstd {
		return data, nil
	}
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("compression level %d out of range [%d, %d]", level, MinLevel, MaxLevel)
	}

	if !c.dependencyChecker.CheckDependencies() {
		c.logger.Infof("Falling back to native implementation of zstd.")
		compressed, err := compressWithGoLib(data, level)
		if err != nil {
			return nil, fmt.Errorf("compress payload: %w", err)
		}
		return compressed, nil
	}

	c.logger.Infof("Using installed zstd binary")
	compressed, err := c.compressWithBinary(data, level)
	if err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	return compressed, nil
}

func compressWithGoLib(data []byte, level int) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	compressed := encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("close zstd writer: %w", err)
	}
	return compressed, nil
}

func (c *Compressor) compressWithBinary(data []byte, level int) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	/*
		zstd arguments:
		-q: Suppress the progress output
		-c: Write to stdout
		-<level>: Compression level
		--threads=0: Use CPU count threads
	*/
	cmd := c.cmdFactory.Create("zstd", []string{"-q", "-c", "-" + strconv.Itoa(level), "--threads=0"}, &command.Opts{
		Stdin:  bytes.NewReader(data),
		Stdout: &stdout,
		Stderr: &stderr,
	})

	c.logger.Debugf("$ %s", cmd.PrintableCommandArgs())

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("command failed with exit status %d (%s):\n%w", exitErr.ExitCode(), cmd.PrintableCommandArgs(), errors.New(stderr.String()))
		}
		return nil, fmt.Errorf("executing command failed (%s): %w", cmd.PrintableCommandArgs(), err)
	}

	return stdout.Bytes(), nil
}

// Decompress reverses a zstd Compress.
func Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer decoder.Close()

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return decompressed, nil
}
