package entity

import "time"

// FailureReason classifies why a channel produced no stream URL.
type FailureReason string

const (
	ReasonNetwork        FailureReason = "network"
	ReasonExtractionMiss FailureReason = "extraction_miss"
	ReasonTimeout        FailureReason = "timeout"
)

// FetchOutcome is the terminal result for one descriptor in one cycle.
// Build it with Succeeded or Failed; it is never modified afterwards.
type FetchOutcome struct {
	Descriptor ChannelDescriptor
	StreamURL  string
	FetchedAt  time.Time
	Reason     FailureReason // empty on success
	Error      string
	Attempts   int
}

func Succeeded(d ChannelDescriptor, streamURL string, fetchedAt time.Time, attempts int) FetchOutcome {
	return FetchOutcome{
		Descriptor: d,
		StreamURL:  streamURL,
		FetchedAt:  fetchedAt,
		Attempts:   attempts,
	}
}

func Failed(d ChannelDescriptor, reason FailureReason, attempts int, err error) FetchOutcome {
	o := FetchOutcome{
		Descriptor: d,
		Reason:     reason,
		Attempts:   attempts,
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// OK reports whether the outcome carries a stream URL.
func (o FetchOutcome) OK() bool {
	return o.Reason == ""
}

// CrawlResultSet holds one outcome per descriptor, in descriptor order.
type CrawlResultSet []FetchOutcome

func (rs CrawlResultSet) Counts() (successes, failures int) {
	for _, o := range rs {
		if o.OK() {
			successes++
		} else {
			failures++
		}
	}
	return successes, failures
}
