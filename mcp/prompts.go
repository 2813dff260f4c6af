package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/harness-community/mcp-devtools/junit"
)

// Prompt describes one prompt as served by prompts/list.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one argument of a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type promptsListResult struct {
	Prompts []Prompt `json:"prompts"`
}

type promptGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

type promptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

type promptGetResult struct {
	Description string          `json:"description"`
	Messages    []promptMessage `json:"messages"`
}

const promptAnalyzeResults = "analyze-test-results"

// detailsLimit caps the stack trace text quoted into the prompt per
// failure.
const detailsLimit = 400

const reviewPreamble = `You are reviewing the results of an automated test run. The JUnit XML
report has already been parsed and summarized below.

Work through the summary and reply with:

1. A one-paragraph verdict on the overall health of the run.
2. For each failed test, the most likely cause and a concrete next step.
   Group tests that appear to share a root cause.
3. Any slow tests or suites that look worth optimizing, with a short
   justification for each.

Be specific and refer to tests by suite and test name. If the summary
alone cannot explain a failure, say what extra information you need.

`

func (s *Server) prompts() []Prompt {
	return []Prompt{
		{
			Name:        promptAnalyzeResults,
			Description: "Summarize a JUnit XML report and ask for a review of the failures and slow spots.",
			Arguments: []PromptArgument{
				{Name: "path", Description: "Path of the JUnit XML report file to analyze.", Required: true},
			},
		},
	}
}

func (s *Server) getPrompt(req Request) Response {
	var params promptGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid prompts/get params: "+err.Error())
	}
	if params.Name != promptAnalyzeResults {
		return errorResponse(req.ID, codeInvalidParams, "unknown prompt: "+params.Name)
	}
	path := params.Arguments["path"]
	if path == "" {
		return errorResponse(req.ID, codeInvalidParams, "missing required argument: path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errorResponse(req.ID, codeInternalError, "failed to read report file: "+err.Error())
	}
	report, err := junit.Parse(data)
	if err != nil {
		return errorResponse(req.ID, codeInternalError, err.Error())
	}
	result := junit.Analyze(report, s.defaults)
	logrus.WithField("Path", path).Info("Rendered analysis prompt")

	return resultResponse(req.ID, promptGetResult{
		Description: "Review of " + path,
		Messages: []promptMessage{
			{
				Role:    "user",
				Content: Content{Type: "text", Text: reviewPreamble + renderSummary(path, result)},
			},
		},
	})
}

// renderSummary turns an analysis result into the markdown block embedded
// in the review prompt.
func renderSummary(source string, result *junit.Result) string {
	var b strings.Builder
	stats := result.Stats
	fmt.Fprintf(&b, "# Test run summary: %s\n\n", source)
	fmt.Fprintf(&b, "- Suites: %d total, %d with failures\n", stats.TotalSuites, stats.FailedSuites)
	fmt.Fprintf(&b, "- Tests: %d total, %d passed, %d failed\n", stats.TotalTests, stats.PassedTests, stats.FailedTests)

	if len(result.Failed) == 0 {
		b.WriteString("\nNo failed tests.\n")
	} else {
		b.WriteString("\n## Failed tests\n\n")
		for i, failed := range result.Failed {
			fmt.Fprintf(&b, "%d. [%s] %s%s\n", i+1, failed.Status,
				qualifiedName(failed.SuiteName, failed.ClassName, failed.TestName), timedSuffix(failed.Time))
			if failed.Message != "" {
				fmt.Fprintf(&b, "   - message: %s\n", failed.Message)
			}
			if failed.Type != "" {
				fmt.Fprintf(&b, "   - type: %s\n", failed.Type)
			}
			if failed.File != "" {
				fmt.Fprintf(&b, "   - file: %s\n", failed.File)
			}
			if failed.Details != "" {
				details := strings.ReplaceAll(truncate(failed.Details, detailsLimit), "\n", "\n     ")
				fmt.Fprintf(&b, "   - details: %s\n", details)
			}
		}
	}

	if len(result.SlowTopQuantileTests) > 0 {
		b.WriteString("\n## Slowest tests\n\n")
		for i, slow := range result.SlowTopQuantileTests {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1,
				qualifiedName(slow.SuiteName, slow.ClassName, slow.TestName), formatSeconds(slow.Time))
		}
	}

	if len(result.SlowTopQuantileSuites) > 0 {
		b.WriteString("\n## Slowest suites\n\n")
		for i, slow := range result.SlowTopQuantileSuites {
			name := slow.SuiteName
			if name == "" {
				name = "(unnamed suite)"
			}
			fmt.Fprintf(&b, "%d. %s: %s total, %d tests, %d failed\n", i+1,
				name, formatSeconds(slow.TotalTime), slow.TotalTests, slow.FailedTests)
		}
	}
	return b.String()
}

// qualifiedName joins the non-empty name parts with slashes.
func qualifiedName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " / ")
}

func timedSuffix(seconds *float64) string {
	if seconds == nil {
		return ""
	}
	return " (" + formatSeconds(*seconds) + ")"
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "... (truncated)"
}
