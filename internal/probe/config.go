// Package probe exercises a running catalog service end to end: it lists
// each configured OS and checks that every valid entry's link answers with
// a redirect.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL string        // Base URL of the service
	OSes    []string      // Operating systems to list
	Workers int           // Number of concurrent redirect checks
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every checked link
}

// Outcome classifies one redirect check.
type Outcome string

// Redirect check outcomes.
const (
	OutcomeRedirect Outcome = "redirect" // 3xx with an absolute Location
	OutcomeRejected Outcome = "rejected" // 400 with a message, e.g. a stored failure
	OutcomeFailed   Outcome = "failed"   // transport error or unexpected answer
)

// Check is the result of following one listed link.
type Check struct {
	OS       string
	Link     string
	Outcome  Outcome
	Location string
	Message  string
}

// Stats holds run statistics.
type Stats struct {
	OSesListed   int
	OSesEmpty    int
	ValidEntries int
	ErrorEntries int
	Redirects    int
	Rejected     int
	Failed       int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
