package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nersc/instbench/cinterop"
	"github.com/nersc/instbench/instrument"
	"github.com/nersc/instbench/wire"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--log-level", "error")
	err := execute(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestMatmulTable(t *testing.T) {
	out, _, err := run(t, "", "matmul", "CXX", "--size", "4", "--ientry", "16", "--nitr", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, out)
	require.Equal(t, []string{"i", "inst_count", "timing", "inst_per_sec", "overhead"},
		strings.Fields(lines[0]))
	for i, want := range []string{"2", "8", "32"} {
		fields := strings.Fields(lines[i+1])
		require.Len(t, fields, 5, lines[i+1])
		require.Equal(t, want, fields[1])
	}
}

func TestMatmulJSON(t *testing.T) {
	out, _, err := run(t, "", "matmul", "c", "--size", "4", "--ientry", "4", "--format", "json")
	require.NoError(t, err)

	var data instrument.RuntimeData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	require.NoError(t, data.Validate())
	require.Equal(t, []int64{1, 4}, data.InstCount())
}

func TestMatmulDump(t *testing.T) {
	out, _, err := run(t, "", "matmul", "c", "--size", "2", "--ientry", "1", "-f", "dump")
	require.NoError(t, err)
	require.Contains(t, out, "InstCount: (int64) 1")
}

func TestMatmulRepeat(t *testing.T) {
	out, _, err := run(t, "", "matmul", "c", "--size", "3", "--ientry", "9", "--repeat", "3")
	require.NoError(t, err)
	require.Contains(t, out, "timing over 3 runs")

	parts := strings.Split(out, "timing over 3 runs\n")
	require.Len(t, parts, 2)
	lines := strings.Split(strings.TrimSpace(parts[1]), "\n")
	require.Len(t, lines, 4, parts[1])
	require.Equal(t, []string{"i", "min", "p50", "p90", "max"}, strings.Fields(lines[0]))

	_, _, err = run(t, "", "matmul", "c", "--repeat", "0")
	require.Error(t, err)
}

func TestMatmulStats(t *testing.T) {
	out, _, err := run(t, "", "matmul", "cxx", "--size", "2", "--ientry", "2", "--stats")
	require.NoError(t, err)
	require.Contains(t, out, "benchmark.dispatch{language=cxx,result=ok}")
}

func TestMatmulInvalidLanguage(t *testing.T) {
	out, errOut, err := run(t, "", "matmul", "fortran")
	require.Equal(t, errNoResult, err)
	require.Empty(t, out)
	require.Contains(t, errOut, "Invalid language: fortran. Valid options: c, cxx\n")
}

func TestMatmulInvalidParameter(t *testing.T) {
	_, errOut, err := run(t, "", "matmul", "c", "--nitr", "0")
	require.Equal(t, errNoResult, err)
	require.Contains(t, errOut, "Invalid nitr: 0. Must be positive\n")
}

func TestMatmulBadFormat(t *testing.T) {
	_, _, err := run(t, "", "matmul", "c", "--format", "xml")
	require.Error(t, err)
	require.NotEqual(t, errNoResult, err)
}

func TestMatmulFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
benchmark:
  language: c
  size: 3
  ientry: 3
`), 0o644))

	out, _, err := run(t, "", "matmul", "--config", path, "-f", "json")
	require.NoError(t, err)
	var data instrument.RuntimeData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	require.Equal(t, []int64{1, 3}, data.InstCount())

	_, _, err = run(t, "", "matmul", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	out, _, err := run(t, "", "verify", "--size", "5")
	require.NoError(t, err)
	require.Equal(t, "c and cxx match the reference product at size 5\n", out)

	_, _, err = run(t, "", "verify", "--size", "0")
	require.Error(t, err)
}

func TestServeStdio(t *testing.T) {
	dir, err := os.MkdirTemp("", "ib")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var in bytes.Buffer
	req := wire.Request{Language: "c", Size: 2, IEntry: 2, NItr: 1}
	require.NoError(t, wire.WriteFrame(&in, req.Marshal()))
	req = wire.Request{Language: "go", Size: 2, IEntry: 2, NItr: 1}
	require.NoError(t, wire.WriteFrame(&in, req.Marshal()))

	out, _, err := run(t, in.String(), "serve", "--stdio", "--socket-dir", dir)
	require.NoError(t, err)

	r := bufio.NewReader(strings.NewReader(out))
	path, _, err := cinterop.ReadAnnouncement(r)
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(path))

	msg, err := wire.ReadFrame(r)
	require.NoError(t, err)
	var resp wire.Response
	require.NoError(t, resp.Unmarshal(msg))
	require.NotNil(t, resp.Data)
	require.Equal(t, []int64{1, 2}, resp.Data.InstCount())

	msg, err = wire.ReadFrame(r)
	require.NoError(t, err)
	resp = wire.Response{}
	require.NoError(t, resp.Unmarshal(msg))
	require.Nil(t, resp.Data)
	require.Equal(t, "Invalid language: go. Valid options: c, cxx\n", resp.Diagnostic)
}
