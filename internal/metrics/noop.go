package metrics

import "time"

// NoopMetrics discards every observation. Zero overhead when metrics are
// disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordRequestTokenIssued(result string)    {}
func (n *NoopMetrics) RecordGrant()                              {}
func (n *NoopMetrics) RecordTokenExchange(result string)         {}
func (n *NoopMetrics) RecordTokenRevoked()                       {}
func (n *NoopMetrics) RecordReplayRejected()                     {}
func (n *NoopMetrics) RecordDeviceResolved(created bool)         {}
func (n *NoopMetrics) RecordSeed(success bool)                   {}
func (n *NoopMetrics) RecordHTTPRequest(string, string, int, time.Duration) {
}
