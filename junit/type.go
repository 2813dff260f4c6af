package junit

import "encoding/xml"

// UnnamedTest is substituted for the name of a test case whose "name"
// attribute is missing from the report.
const UnnamedTest = "(unnamed test)"

// testSuites is the <testsuites> wrapper element emitted by most JUnit
// producers. Some producers skip it and emit <testsuite> elements directly
// at the top level; decodeSuites accepts both shapes.
type testSuites struct {
	XMLName xml.Name    `xml:"testsuites"`
	Suites  []testSuite `xml:"testsuite"`
}

// testSuite is a single <testsuite> element. Numeric attributes are kept as
// strings so that a bad value degrades to an absent field instead of
// failing the whole decode.
type testSuite struct {
	XMLName  xml.Name   `xml:"testsuite"`
	Name     string     `xml:"name,attr"`
	File     string     `xml:"file,attr"`
	Filename string     `xml:"filename,attr"`
	Time     string     `xml:"time,attr"`
	Cases    []testCase `xml:"testcase"`
}

// testCase is a single <testcase> element. Both attribute spellings of the
// class and file fields are declared; resolution order lives in parse.go.
type testCase struct {
	Name      string           `xml:"name,attr"`
	ClassName string           `xml:"classname,attr"`
	Class     string           `xml:"class,attr"`
	Time      string           `xml:"time,attr"`
	File      string           `xml:"file,attr"`
	Filename  string           `xml:"filename,attr"`
	Failures  []annotationNode `xml:"failure"`
	Errors    []annotationNode `xml:"error"`
}

// annotationNode is a <failure> or <error> child of a test case.
type annotationNode struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// Report is the normalized form of one JUnit XML document: an ordered
// sequence of suites, each owning its ordered test cases.
type Report struct {
	Suites []Suite
}

// Suite is one test-execution group with its resolved metadata.
type Suite struct {
	Name string
	// File is the resolved source path, empty when unknown.
	File string
	// Time is the resolved duration in seconds. It is nil only for a suite
	// that has no test cases and no usable declared time.
	Time  *float64
	Cases []TestCase
}

// TestCase is a single test execution.
type TestCase struct {
	Name      string
	ClassName string
	File      string
	// Time is the declared duration in seconds, nil when the attribute is
	// missing or not a finite number.
	Time *float64
	// Annotations holds the failure and error records of the case, failures
	// first, node order preserved within each kind.
	Annotations []Annotation
}

// Failed reports whether the case carries at least one failure or error
// annotation.
func (c TestCase) Failed() bool {
	return len(c.Annotations) > 0
}

// AnnotationKind distinguishes assertion failures from runtime errors.
type AnnotationKind string

// Annotation kinds, matching the element names that produce them.
const (
	KindFailure AnnotationKind = "failure"
	KindError   AnnotationKind = "error"
)

// Annotation is one failure or error record attached to a test case.
type Annotation struct {
	Kind    AnnotationKind
	Message string
	Type    string
	Details string
}

// Stats holds the aggregate counters of one analyzed report.
type Stats struct {
	TotalSuites  int `json:"totalSuites"`
	FailedSuites int `json:"failedSuites"`
	TotalTests   int `json:"totalTests"`
	FailedTests  int `json:"failedTests"`
	PassedTests  int `json:"passedTests"`
}

// FailedTest is one entry of the failed-items list. A test case produces
// one entry per annotation, so a case with both a failure and an error
// appears twice.
type FailedTest struct {
	SuiteName string         `json:"suiteName,omitempty"`
	ClassName string         `json:"className,omitempty"`
	TestName  string         `json:"testName"`
	Time      *float64       `json:"time,omitempty"`
	Status    AnnotationKind `json:"status"`
	Message   string         `json:"message,omitempty"`
	Type      string         `json:"type,omitempty"`
	Details   string         `json:"details,omitempty"`
	File      string         `json:"file,omitempty"`
}

// SlowTest is one entry of the slow-tests selection.
type SlowTest struct {
	SuiteName string  `json:"suiteName,omitempty"`
	ClassName string  `json:"className,omitempty"`
	TestName  string  `json:"testName"`
	Time      float64 `json:"time"`
	File      string  `json:"file,omitempty"`
}

// SlowSuite is one entry of the slow-suites selection.
type SlowSuite struct {
	SuiteName   string  `json:"suiteName,omitempty"`
	TotalTime   float64 `json:"totalTime"`
	TotalTests  int     `json:"totalTests"`
	FailedTests int     `json:"failedTests"`
	File        string  `json:"file,omitempty"`
}

// Result is the full analysis output. All four fields are always present;
// the list fields may be empty but are never null in the JSON encoding.
type Result struct {
	Stats                 Stats        `json:"stats"`
	Failed                []FailedTest `json:"failed"`
	SlowTopQuantileTests  []SlowTest   `json:"slowTopQuantileTests"`
	SlowTopQuantileSuites []SlowSuite  `json:"slowTopQuantileSuites"`
}
