package cli

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// TestReport is a set of test outcomes that can be written as JUnit XML.
type TestReport struct {
	Name  string
	Cases []TestCase
}

// TestCase is one test outcome. Suite groups cases into <testsuite>
// elements.
type TestCase struct {
	Suite   string
	Name    string
	Failure string
	Elapsed time.Duration
}

// Failed returns the number of failed cases.
func (r *TestReport) Failed() int {
	n := 0
	for _, c := range r.Cases {
		if c.Failure != "" {
			n++
		}
	}
	return n
}

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr,omitempty"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// JUnitFormatter writes a TestReport as JUnit XML.
type JUnitFormatter struct{}

// FormatTo writes data to writer in JUnit XML format.
func (f *JUnitFormatter) FormatTo(w io.Writer, data any) error {
	var report *TestReport
	switch d := data.(type) {
	case *TestReport:
		report = d
	case TestReport:
		report = &d
	default:
		return fmt.Errorf("JUnit output is not supported for %T", data)
	}

	out := junitSuites{Name: report.Name, Tests: len(report.Cases), Failures: report.Failed()}
	index := make(map[string]int)
	elapsed := make(map[string]time.Duration)
	for _, c := range report.Cases {
		i, ok := index[c.Suite]
		if !ok {
			i = len(out.Suites)
			index[c.Suite] = i
			out.Suites = append(out.Suites, junitSuite{Name: c.Suite})
		}
		suite := &out.Suites[i]
		jc := junitCase{ClassName: c.Suite, Name: c.Name, Time: seconds(c.Elapsed)}
		if c.Failure != "" {
			jc.Failure = &junitFailure{Message: c.Failure, Body: c.Failure}
			suite.Failures++
		}
		suite.Tests++
		suite.Cases = append(suite.Cases, jc)
		elapsed[c.Suite] += c.Elapsed
	}
	for i := range out.Suites {
		out.Suites[i].Time = seconds(elapsed[out.Suites[i].Name])
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}
