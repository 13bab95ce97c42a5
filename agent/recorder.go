package agent

import "time"

// Recorder receives timings for the model and function calls made during a turn.
// metrics.Collector implements it.
type Recorder interface {
	ModelCall(agent, model string, d time.Duration, err error)
	FunctionCall(agent, function string, d time.Duration, resolved bool, err error)
}

type noopRecorder struct{}

func (noopRecorder) ModelCall(string, string, time.Duration, error) {}

func (noopRecorder) FunctionCall(string, string, time.Duration, bool, error) {}
