package queuesvc

import (
	"testing"
	"time"

	"github.com/kyled7/queue-vision/internal/broker"
)

func mustFilter(t *testing.T, expr string) jobFilter {
	t.Helper()
	f, err := newJobFilter(expr)
	if err != nil {
		t.Fatalf("compile %q: %v", expr, err)
	}
	return f
}

func sampleJob() broker.Job {
	created := time.Now().Add(-time.Minute)
	return broker.Job{
		ID:        "42",
		Queue:     "emails",
		Status:    broker.StatusFailed,
		Attempts:  3,
		Data:      map[string]interface{}{"to": "a@b.c"},
		Error:     &broker.JobError{Message: "smtp timeout"},
		CreatedAt: &created,
	}
}

func TestFilterDisabledAcceptsAll(t *testing.T) {
	f := mustFilter(t, "")
	if !f.Eval(sampleJob()) {
		t.Fatalf("empty filter must accept")
	}
	if f.enabled {
		t.Fatalf("empty filter must be disabled")
	}
}

func TestFilterExpressions(t *testing.T) {
	job := sampleJob()
	cases := map[string]bool{
		`attempts > 2`:                       true,
		`attempts > 5`:                       false,
		`status == "failed"`:                 true,
		`id == "42" && queue == "emails"`:    true,
		`failed_reason.contains("timeout")`:  true,
		`data.to == "a@b.c"`:                 true,
		`created_ms > now_ms`:                false,
		`created_ms > 0 && finished_ms == 0`: true,
	}
	for expr, want := range cases {
		if got := mustFilter(t, expr).Eval(job); got != want {
			t.Fatalf("%q = %v, want %v", expr, got, want)
		}
	}
}

func TestFilterCompileError(t *testing.T) {
	_, err := newJobFilter("attempts >")
	if !broker.IsKind(err, broker.KindInvalidArgument) {
		t.Fatalf("want invalid_argument, got %v", err)
	}
}

func TestFilterEvalErrorRejects(t *testing.T) {
	// data is nil here, so the field access errors and the job is rejected
	f := mustFilter(t, `data.to == "x"`)
	if f.Eval(broker.Job{ID: "1"}) {
		t.Fatalf("eval error must reject the job")
	}
}

func TestFilterNonBoolRejects(t *testing.T) {
	f := mustFilter(t, `attempts + 1`)
	if f.Eval(sampleJob()) {
		t.Fatalf("non-boolean result must reject")
	}
}
