package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<testsuites>
  <testsuite name="checkout" time="7.0">
    <testcase name="test_cart_total" classname="checkout.CartTest" time="1.0"/>
    <testcase name="test_apply_coupon" classname="checkout.CartTest" time="6.0">
      <failure message="expected 90 got 100" type="AssertionError">assert total == 90</failure>
    </testcase>
  </testsuite>
</testsuites>`

func writeReport(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junit.xml")
	writeReport(t, path, sampleXML)

	out, err := runCommand(t, "analyze", path)
	require.NoError(t, err)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, filepath.ToSlash(path), results[0].File)
	require.NotNil(t, results[0].Report)
	assert.Equal(t, 2, results[0].Report.Stats.TotalTests)
	assert.Equal(t, 1, results[0].Report.Stats.FailedTests)
	require.Len(t, results[0].Report.SlowTopQuantileTests, 1)
	assert.Equal(t, "test_apply_coupon", results[0].Report.SlowTopQuantileTests[0].TestName)
}

func TestAnalyzeCommandDir(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, filepath.Join(dir, "junit-a.xml"), sampleXML)
	writeReport(t, filepath.Join(dir, "sub", "test-b.xml"), sampleXML)
	writeReport(t, filepath.Join(dir, "node_modules", "junit.xml"), sampleXML)

	out, err := runCommand(t, "analyze", "--dir", dir)
	require.NoError(t, err)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "junit-a.xml")), results[0].File)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "sub", "test-b.xml")), results[1].File)
}

func TestAnalyzeCommandFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junit.xml")
	writeReport(t, path, sampleXML)

	out, err := runCommand(t, "analyze", "--slow-test-threshold", "0.5", "--max-slow-tests", "1", path)
	require.NoError(t, err)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	require.Len(t, results[0].Report.SlowTopQuantileTests, 1)
	assert.Equal(t, 6.0, results[0].Report.SlowTopQuantileTests[0].Time)
}

func TestAnalyzeCommandErrors(t *testing.T) {
	t.Run("no input", func(t *testing.T) {
		_, err := runCommand(t, "analyze")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no report files given")
	})

	t.Run("invalid policy flag", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "junit.xml")
		writeReport(t, path, sampleXML)
		_, err := runCommand(t, "analyze", "--slow-suite-quantile", "2", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slow suite quantile")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runCommand(t, "analyze", filepath.Join(t.TempDir(), "missing.xml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read report file")
	})

	t.Run("malformed report", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "junit.xml")
		writeReport(t, path, "<testsuites><testsuite></testsuites>")
		_, err := runCommand(t, "analyze", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse JUnit XML")
	})
}

func TestLocateCommand(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, filepath.Join(dir, "junit.xml"), sampleXML)
	writeReport(t, filepath.Join(dir, "deep", "junit-nested.xml"), sampleXML)
	writeReport(t, filepath.Join(dir, "notes.txt"), "not a report")

	out, err := runCommand(t, "locate", dir)
	require.NoError(t, err)

	// Walk order is lexical, so the deep directory comes before the
	// top-level file.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "deep", "junit-nested.xml")), lines[0])
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "junit.xml")), lines[1])
}

func TestLocateCommandDepthFlag(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, filepath.Join(dir, "junit.xml"), sampleXML)
	writeReport(t, filepath.Join(dir, "deep", "junit-nested.xml"), sampleXML)

	out, err := runCommand(t, "locate", "--max-depth", "1", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "junit.xml")), lines[0])
}

func TestInvalidLogLevelEnv(t *testing.T) {
	t.Setenv("MCP_DEVTOOLS_LOG_LEVEL", "shouting")

	_, err := runCommand(t, "locate", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("MCP_DEVTOOLS_LOG_LEVEL", "error")
	defer logrus.SetLevel(logrus.InfoLevel)

	_, err := runCommand(t, "--log-level", "debug", "locate", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	_, err = runCommand(t, "--log-level", "shouting", "locate", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level: shouting")
}

func TestSettingsOptions(t *testing.T) {
	t.Setenv("MCP_DEVTOOLS_SLOW_TEST_THRESHOLD", "2.5")
	t.Setenv("MCP_DEVTOOLS_MIN_SLOW_SUITES", "3")

	var settings Settings
	require.NoError(t, settings.load())

	opts := settings.options()
	assert.Equal(t, 2.5, opts.SlowTestThreshold)
	assert.Equal(t, 20, opts.MaxSlowTests)
	assert.Equal(t, 0.8, opts.SlowSuiteQuantile)
	assert.Equal(t, 3, opts.MinSlowSuites)
}
