package junit

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Parse converts raw JUnit XML into the normalized report model. The input
// may use a <testsuites> wrapper, a single bare <testsuite> root, or
// several <testsuite> elements concatenated at the top level. Malformed
// XML and unknown root elements are errors; bad attribute values are not,
// they resolve to absent fields.
func Parse(data []byte) (*Report, error) {
	suites, err := decodeSuites(data)
	if err != nil {
		return nil, err
	}
	report := &Report{Suites: make([]Suite, 0, len(suites))}
	for _, raw := range suites {
		report.Suites = append(report.Suites, normalizeSuite(raw))
	}
	return report, nil
}

// decodeSuites walks the top-level elements of the document and collects
// every <testsuite>, whether wrapped in <testsuites> or not.
func decodeSuites(data []byte) ([]testSuite, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var suites []testSuite
	seen := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New("failed to parse JUnit XML: " + err.Error())
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		seen = true
		switch start.Name.Local {
		case "testsuites":
			var wrapper testSuites
			if err := decoder.DecodeElement(&wrapper, &start); err != nil {
				return nil, errors.New("failed to parse JUnit XML: " + err.Error())
			}
			suites = append(suites, wrapper.Suites...)
		case "testsuite":
			var suite testSuite
			if err := decoder.DecodeElement(&suite, &start); err != nil {
				return nil, errors.New("failed to parse JUnit XML: " + err.Error())
			}
			suites = append(suites, suite)
		default:
			return nil, errors.New("unexpected root element <" + start.Name.Local + ">, want <testsuites> or <testsuite>")
		}
	}
	if !seen {
		return nil, errors.New("failed to parse JUnit XML: no root element found")
	}
	return suites, nil
}

func normalizeSuite(raw testSuite) Suite {
	suite := Suite{
		Name:  raw.Name,
		Cases: make([]TestCase, 0, len(raw.Cases)),
	}
	for _, rawCase := range raw.Cases {
		suite.Cases = append(suite.Cases, normalizeCase(rawCase))
	}
	suite.File = resolveSuiteFile(raw, suite.Cases)
	suite.Time = resolveSuiteTime(raw.Time, suite.Cases)
	return suite
}

func normalizeCase(raw testCase) TestCase {
	c := TestCase{
		Name:      raw.Name,
		ClassName: firstPresent(raw.ClassName, raw.Class),
		File:      firstPresent(raw.File, raw.Filename),
	}
	if c.Name == "" {
		c.Name = UnnamedTest
	}
	if t, ok := parseSeconds(raw.Time); ok {
		c.Time = &t
	} else if raw.Time != "" {
		logrus.WithField("Test", c.Name).Debugf("Ignoring unusable time attribute %q", raw.Time)
	}
	c.Annotations = collectAnnotations(raw)
	return c
}

// collectAnnotations flattens the failure and error children into a single
// list, failures first, keeping node order within each kind.
func collectAnnotations(raw testCase) []Annotation {
	total := len(raw.Failures) + len(raw.Errors)
	if total == 0 {
		return nil
	}
	annotations := make([]Annotation, 0, total)
	for _, node := range raw.Failures {
		annotations = append(annotations, node.normalize(KindFailure))
	}
	for _, node := range raw.Errors {
		annotations = append(annotations, node.normalize(KindError))
	}
	return annotations
}

func (n annotationNode) normalize(kind AnnotationKind) Annotation {
	return Annotation{
		Kind:    kind,
		Message: n.Message,
		Type:    n.Type,
		Details: strings.TrimSpace(n.Body),
	}
}

// resolveSuiteFile prefers the suite's own file attributes and falls back
// to the source path shared by the most test cases. Ties keep the path
// whose first occurrence came earlier in the suite.
func resolveSuiteFile(raw testSuite, cases []TestCase) string {
	if file := firstPresent(raw.File, raw.Filename); file != "" {
		return file
	}
	counts := make(map[string]int)
	var order []string
	for _, c := range cases {
		if c.File == "" {
			continue
		}
		if counts[c.File] == 0 {
			order = append(order, c.File)
		}
		counts[c.File]++
	}
	best := ""
	bestCount := 0
	for _, file := range order {
		if counts[file] > bestCount {
			best = file
			bestCount = counts[file]
		}
	}
	return best
}

// resolveSuiteTime prefers the declared suite time and falls back to the
// sum of the contained case durations, counting missing case durations as
// zero. A suite with no usable declared time and no cases at all resolves
// to no duration.
func resolveSuiteTime(declared string, cases []TestCase) *float64 {
	if t, ok := parseSeconds(declared); ok {
		return &t
	}
	if len(cases) == 0 {
		return nil
	}
	total := 0.0
	for _, c := range cases {
		if c.Time != nil {
			total += *c.Time
		}
	}
	return &total
}

// parseSeconds converts a raw time attribute to seconds. Missing,
// non-numeric and non-finite values all report false rather than failing
// the decode.
func parseSeconds(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// firstPresent returns the first non-empty candidate, mirroring the
// attribute alias chains of the schema.
func firstPresent(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
