// Package metrics names the portal's metric series and their tags.
package metrics

import (
	"time"

	obserrors "github.com/jobmatcher/jm-portal/internal/observability/errors"
	"github.com/jobmatcher/jm-portal/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Session transitions.
const (
	TransitionLogin   = "login"
	TransitionLogout  = "logout"
	TransitionRefresh = "refresh"
)

// SessionMetric captures one session state change.
type SessionMetric struct {
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitSessionTransition emits the session transition counter and, for
// timed transitions, the duration.
func EmitSessionTransition(sink statsd.Sink, in SessionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if class := obserrors.Classify(in.Err); class != "" {
		tags["error_class"] = class
	}

	sink.Count("session.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("session.refresh.duration", in.Duration, CloneTags(tags))
	}
}

// BackendMetric captures one backend health probe.
type BackendMetric struct {
	Backend  string
	Healthy  bool
	Duration time.Duration
}

// EmitBackendProbe records a backend ping result.
func EmitBackendProbe(sink statsd.Sink, in BackendMetric) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if !in.Healthy {
		result = ResultError
	}
	tags := map[string]string{"backend": in.Backend, "result": result}
	sink.Count("backend.probe", 1, tags)
	sink.Timing("backend.probe.duration", in.Duration, CloneTags(tags))
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
