package form

// Recorder receives counters about form activity. internal/metrics has a
// Prometheus implementation.
type Recorder interface {
	FactCommitted(kind string)
	FactRejected(kind string)
	GateEvaluated(passed bool)
	ItemAdded()
	ItemRemoved()
	SignalPublished(s Signal)
}

type nopRecorder struct{}

func (nopRecorder) FactCommitted(string)   {}
func (nopRecorder) FactRejected(string)    {}
func (nopRecorder) GateEvaluated(bool)     {}
func (nopRecorder) ItemAdded()             {}
func (nopRecorder) ItemRemoved()           {}
func (nopRecorder) SignalPublished(Signal) {}
