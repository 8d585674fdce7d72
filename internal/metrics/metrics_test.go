package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatherNames(t *testing.T, r *prometheus.Registry) map[string]bool {
	t.Helper()
	mfs, err := r.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestRegisterAndRecord(t *testing.T) {
	r := prometheus.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Registering again is a no-op.
	if err := Register(r); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	SetEngineUp(true)
	IncStart()
	IncStop()
	IncBootstrap()
	IncRecovery("stale_process_dead")
	ObserveStartDuration(0.42)

	names := gatherNames(t, r)
	for _, want := range []string{
		"trademon_engine_up",
		"trademon_engine_starts_total",
		"trademon_engine_stops_total",
		"trademon_engine_bootstraps_total",
		"trademon_engine_recoveries_total",
		"trademon_engine_start_duration_seconds",
	} {
		if !names[want] {
			t.Fatalf("metric %s not gathered (got %v)", want, names)
		}
	}
}

func TestHandlerNotNil(t *testing.T) {
	if Handler() == nil {
		t.Fatalf("nil metrics handler")
	}
}
