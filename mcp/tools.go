package mcp

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/harness-community/mcp-devtools/discovery"
	"github.com/harness-community/mcp-devtools/junit"
)

// Tool describes one callable tool as served by tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

const (
	toolAnalyzeReport = "analyze_junit_report"
	toolFindReports   = "find_junit_reports"
)

func (s *Server) tools() []Tool {
	return []Tool{
		{
			Name:        toolAnalyzeReport,
			Description: "Parse a JUnit XML test report and return aggregate statistics, every failed test and the slowest tests and suites as JSON.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path of a JUnit XML report file. Exactly one of path or xml must be given.",
					},
					"xml": map[string]any{
						"type":        "string",
						"description": "Raw JUnit XML text. Exactly one of path or xml must be given.",
					},
					"slowTestThreshold": map[string]any{
						"type":        "number",
						"description": "Seconds a test must strictly exceed to count as slow. Default 5.",
					},
					"maxSlowTests": map[string]any{
						"type":        "integer",
						"description": "Maximum number of slow tests to return. Default 20.",
					},
					"slowSuiteQuantile": map[string]any{
						"type":        "number",
						"description": "Duration quantile, between 0 and 1, a suite must reach to count as slow. Default 0.8.",
					},
					"minSlowSuites": map[string]any{
						"type":        "integer",
						"description": "Minimum number of suites to return whenever any suite has timing data. Default 1.",
					},
				},
			},
		},
		{
			Name:        toolFindReports,
			Description: "Recursively locate JUnit XML report files under a directory, skipping dependency and build-output directories.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"root": map[string]any{
						"type":        "string",
						"description": "Directory to search.",
					},
					"maxDepth": map[string]any{
						"type":        "integer",
						"description": "Maximum directory depth to descend. Default 5.",
					},
				},
				"required": []string{"root"},
			},
		},
	}
}

func (s *Server) callTool(req Request) Response {
	var call toolCallParams
	if err := json.Unmarshal(req.Params, &call); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}
	logrus.WithField("Tool", call.Name).Info("Tool call")
	switch call.Name {
	case toolAnalyzeReport:
		return resultResponse(req.ID, s.analyzeReport(call.Arguments))
	case toolFindReports:
		return resultResponse(req.ID, s.findReports(call.Arguments))
	default:
		return errorResponse(req.ID, codeInvalidParams, "unknown tool: "+call.Name)
	}
}

// analyzeArgs are the arguments of the analyze_junit_report tool. The
// policy fields are pointers so that an omitted field falls back to the
// server default rather than to zero.
type analyzeArgs struct {
	Path              string   `json:"path"`
	XML               string   `json:"xml"`
	SlowTestThreshold *float64 `json:"slowTestThreshold"`
	MaxSlowTests      *int     `json:"maxSlowTests"`
	SlowSuiteQuantile *float64 `json:"slowSuiteQuantile"`
	MinSlowSuites     *int     `json:"minSlowSuites"`
}

// options merges the per-call overrides into the server defaults.
func (a analyzeArgs) options(defaults junit.Options) junit.Options {
	opts := defaults
	if a.SlowTestThreshold != nil {
		opts.SlowTestThreshold = *a.SlowTestThreshold
	}
	if a.MaxSlowTests != nil {
		opts.MaxSlowTests = *a.MaxSlowTests
	}
	if a.SlowSuiteQuantile != nil {
		opts.SlowSuiteQuantile = *a.SlowSuiteQuantile
	}
	if a.MinSlowSuites != nil {
		opts.MinSlowSuites = *a.MinSlowSuites
	}
	return opts
}

func (s *Server) analyzeReport(args json.RawMessage) *ToolResult {
	var a analyzeArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return errorResult("invalid arguments: %s", err)
		}
	}

	var data []byte
	switch {
	case a.Path != "" && a.XML != "":
		return errorResult("give either path or xml, not both")
	case a.Path != "":
		read, err := os.ReadFile(a.Path)
		if err != nil {
			return errorResult("failed to read report file: %s", err)
		}
		data = read
	case a.XML != "":
		data = []byte(a.XML)
	default:
		return errorResult("missing report input: give path or xml")
	}

	opts := a.options(s.defaults)
	if err := opts.Validate(); err != nil {
		return errorResult("invalid analysis options: %s", err)
	}

	report, err := junit.Parse(data)
	if err != nil {
		return errorResult("%s", err)
	}
	result := junit.Analyze(report, opts)

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResult("failed to encode analysis result: %s", err)
	}
	return textResult(string(payload))
}

type findArgs struct {
	Root     string `json:"root"`
	MaxDepth int    `json:"maxDepth"`
}

type findReportsPayload struct {
	Reports []string `json:"reports"`
	Total   int      `json:"total"`
}

func (s *Server) findReports(args json.RawMessage) *ToolResult {
	var a findArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return errorResult("invalid arguments: %s", err)
		}
	}
	if a.Root == "" {
		return errorResult("missing required argument: root")
	}

	reports, err := discovery.FindReports(a.Root, a.MaxDepth)
	if err != nil {
		return errorResult("%s", err)
	}
	payload, err := json.MarshalIndent(findReportsPayload{Reports: reports, Total: len(reports)}, "", "  ")
	if err != nil {
		return errorResult("failed to encode report list: %s", err)
	}
	return textResult(string(payload))
}
