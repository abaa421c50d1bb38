package compression

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChecker bool

func (c staticChecker) CheckDependencies() bool {
	return bool(c)
}

type fakeCommand struct {
	command.Command
	opts *command.Opts
	out  []byte
	err  error
}

func (c fakeCommand) PrintableCommandArgs() string {
	return "zstd"
}

func (c fakeCommand) Run() error {
	if c.err != nil {
		return c.err
	}
	if _, err := io.ReadAll(c.opts.Stdin); err != nil {
		return err
	}
	_, err := c.opts.Stdout.Write(c.out)
	return err
}

type fakeCommandFactory struct {
	args []string
	out  []byte
	err  error
}

func (f *fakeCommandFactory) Create(name string, args []string, opts *command.Opts) command.Command {
	f.args = append([]string{name}, args...)
	return fakeCommand{opts: opts, out: f.out, err: f.err}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{in: "", want: None},
		{in: "none", want: None},
		{in: "zstd", want: Zstd},
		{in: " ZSTD ", want: Zstd},
		{in: "gzip", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlgorithm_Extension(t *testing.T) {
	assert.Equal(t, ".zst", Zstd.Extension())
	assert.Equal(t, "", None.Extension())
}

func TestCompressor_None(t *testing.T) {
	factory := &fakeCommandFactory{}
	compressor := NewCompressor(log.NewLogger(), factory, staticChecker(true))
	data := []byte("plain")

	got, err := compressor.Compress(data, None, DefaultLevel)

	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Nil(t, factory.args)
}

func TestCompressor_GoLibRoundTrip(t *testing.T) {
	compressor := NewCompressor(log.NewLogger(), &fakeCommandFactory{}, staticChecker(false))
	data := bytes.Repeat([]byte("timestamp,value\n2024-01-01T00:00:00Z,42\n"), 1000)

	for _, level := range []int{MinLevel, DefaultLevel, MaxLevel} {
		compressed, err := compressor.Compress(data, Zstd, level)
		require.NoError(t, err)
		assert.Less(t, len(compressed), len(data))

		decompressed, err := Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, data, decompressed)
	}
}

func TestCompressor_LevelOutOfRange(t *testing.T) {
	compressor := NewCompressor(log.NewLogger(), &fakeCommandFactory{}, staticChecker(false))

	_, err := compressor.Compress([]byte("x"), Zstd, 22)

	assert.Error(t, err)
}

func TestCompressor_Binary(t *testing.T) {
	factory := &fakeCommandFactory{out: []byte("compressed")}
	compressor := NewCompressor(log.NewLogger(), factory, staticChecker(true))

	got, err := compressor.Compress([]byte("payload"), Zstd, 7)

	require.NoError(t, err)
	assert.Equal(t, []byte("compressed"), got)
	assert.Equal(t, []string{"zstd", "-q", "-c", "-7", "--threads=0"}, factory.args)
}

func TestCompressor_BinaryFails(t *testing.T) {
	factory := &fakeCommandFactory{err: errors.New("signal: killed")}
	compressor := NewCompressor(log.NewLogger(), factory, staticChecker(true))

	_, err := compressor.Compress([]byte("payload"), Zstd, DefaultLevel)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "signal: killed")
}

func TestDecompress_InvalidData(t *testing.T) {
	_, err := Decompress([]byte("not zstd"))

	assert.Error(t, err)
}
