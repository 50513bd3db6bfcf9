// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// Provider calls
	RecordOCR(docType string, pages int, d time.Duration, err error)
	RecordLLM(d time.Duration, err error)

	// Projects
	IncProjectCacheHit()
	IncProjectCacheMiss()
	IncProjectCreated()
	IncProjectDeleted()

	// Credentials and metering
	IncAPIKeyIssued()
	IncCredit(outcome string) // outcome: "consumed", "refunded", "exhausted"
}

// Credit outcomes.
const (
	CreditConsumed  = "consumed"
	CreditRefunded  = "refunded"
	CreditExhausted = "exhausted"
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
