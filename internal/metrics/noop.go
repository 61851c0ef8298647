package metrics

// NoopMetrics discards everything. Used when metrics are disabled and in tests.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

func NewNoopMetrics() *NoopMetrics { return &NoopMetrics{} }

func (*NoopMetrics) RecordOAuthCallback(string)  {}
func (*NoopMetrics) RecordWebhookForward(string) {}
func (*NoopMetrics) RecordCallback(string)       {}
func (*NoopMetrics) RecordGeneration(string)     {}
