package policy

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"

	"clustersched/internal/config"
	"clustersched/internal/metrics"
	"clustersched/internal/procsupervisor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopWriteCloser adapts a bytes.Buffer to io.WriteCloser for tests that
// drive predictor/agent against an in-memory pipe instead of a real child.
type nopWriteCloser struct{ *bytes.Buffer }

func (nopWriteCloser) Close() error { return nil }

func newFakePolicy(replies ...string) (*procsupervisor.Policy, *bytes.Buffer) {
	var stdin bytes.Buffer
	reply := strings.Join(replies, "\n")
	if len(replies) > 0 {
		reply += "\n"
	}
	return &procsupervisor.Policy{
		Stdin:  nopWriteCloser{&stdin},
		Reader: bufio.NewReader(strings.NewReader(reply)),
	}, &stdin
}

func TestCollectorTickAppendsRow(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/scheduler_1.csv"
	f, err := os.Create(path)
	require.NoError(t, err)
	c := &collector{file: f, writer: csv.NewWriter(f)}

	tick := metrics.Compute(1000, 500, 5, 200, 10, 42.5, 20)
	next, err := c.Tick(tick, config.ClusterBoth)
	require.NoError(t, err)
	assert.Equal(t, config.ClusterBoth, next)
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "20,1000,500,5,200,10\n", string(data))
}

func TestPredictorArgmaxMonotoneBig(t *testing.T) {
	proc, stdin := newFakePolicy("1000.0", "2000.0", "1500.0")
	p := newPredictor(proc)

	next, err := p.Tick(metrics.Tick{}, config.ClusterBoth)
	require.NoError(t, err)
	assert.Equal(t, config.ClusterBig, next)
	assert.Equal(t, 3, strings.Count(stdin.String(), "\n"))
}

func TestPredictorTieLastWins(t *testing.T) {
	proc, _ := newFakePolicy("500.0", "500.0", "500.0")
	p := newPredictor(proc)

	next, err := p.Tick(metrics.Tick{}, config.ClusterLittle)
	require.NoError(t, err)
	assert.Equal(t, config.ClusterBoth, next)
}

func TestPredictorAllNonPositiveRetainsCurrent(t *testing.T) {
	proc, _ := newFakePolicy("0.0", "-5.0", "0.0")
	p := newPredictor(proc)

	next, err := p.Tick(metrics.Tick{}, config.ClusterLittle)
	require.NoError(t, err)
	assert.Equal(t, config.ClusterLittle, next)
}

func TestAgentMapsKnownTokens(t *testing.T) {
	cases := map[string]config.ClusterState{
		"4L":   config.ClusterLittle,
		"4B":   config.ClusterBig,
		"4B4L": config.ClusterBoth,
	}
	for reply, want := range cases {
		proc, _ := newFakePolicy(reply)
		a := newAgent(proc)
		next, err := a.Tick(metrics.Tick{}, config.ClusterBoth)
		require.NoError(t, err)
		assert.Equal(t, want, next)
	}
}

func TestAgentUnknownTokenRetainsCurrent(t *testing.T) {
	proc, _ := newFakePolicy("HELLO")
	a := newAgent(proc)
	next, err := a.Tick(metrics.Tick{}, config.ClusterBig)
	require.NoError(t, err)
	assert.Equal(t, config.ClusterBig, next)
}

func TestFormatHexRoundTrips(t *testing.T) {
	for _, v := range []float64{0, 1.5, -3.25, 123456.789} {
		hex := formatHex(v)
		parsed, err := strconv.ParseFloat(hex, 64)
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}
}

func TestWriteLineShortWriteIsFatal(t *testing.T) {
	err := writeLine(failingWriter{}, "a", "b")
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestReadLineEOFIsFatal(t *testing.T) {
	_, err := readLine(bufio.NewReader(strings.NewReader("")))
	assert.Error(t, err)
}

func TestReadLineIncompleteIsFatal(t *testing.T) {
	_, err := readLine(bufio.NewReader(strings.NewReader("no newline")))
	assert.Error(t, err)
}
