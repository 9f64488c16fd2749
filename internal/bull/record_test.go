package bull

import (
	"reflect"
	"testing"
	"time"

	"github.com/kyled7/queue-vision/internal/broker"
)

func TestDecodeRecordFull(t *testing.T) {
	fields := map[string]string{
		"data":         `{"to":"a@b.c","retries":1}`,
		"opts":         `{"attempts":5,"backoff":1000}`,
		"returnvalue":  `"sent"`,
		"timestamp":    "1000",
		"processedOn":  "1500",
		"finishedOn":   "2600",
		"attemptsMade": "1",
	}
	job, err := decodeRecord("emails", "42", broker.StatusCompleted, fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := job.Data.(map[string]interface{})
	if !ok || data["to"] != "a@b.c" {
		t.Fatalf("data = %#v", job.Data)
	}
	if job.ReturnValue != "sent" {
		t.Fatalf("returnvalue = %#v", job.ReturnValue)
	}
	if job.Attempts != 1 || job.MaxAttempts != 5 {
		t.Fatalf("attempts = %d/%d", job.Attempts, job.MaxAttempts)
	}
	if job.CreatedAt == nil || job.CreatedAt.UnixMilli() != 1000 {
		t.Fatalf("createdAt = %v", job.CreatedAt)
	}
	if job.ProcessedAt == nil || job.FinishedAt == nil {
		t.Fatalf("terminal timestamps absent")
	}
	if !job.ProcessedAt.Before(*job.FinishedAt) {
		t.Fatalf("processed %v not before finished %v", job.ProcessedAt, job.FinishedAt)
	}
	if job.Error != nil {
		t.Fatalf("unexpected error record: %+v", job.Error)
	}
}

func TestDecodeRecordFailedJob(t *testing.T) {
	fields := map[string]string{
		"failedReason": "boom",
		"stacktrace":   `["at worker.js:1","at run.js:9"]`,
		"finishedOn":   "2000",
	}
	job, err := decodeRecord("emails", "7", broker.StatusFailed, fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Error == nil || job.Error.Message != "boom" {
		t.Fatalf("error = %+v", job.Error)
	}
	if !reflect.DeepEqual(job.Error.Stack, []string{"at worker.js:1", "at run.js:9"}) {
		t.Fatalf("stack = %+v", job.Error.Stack)
	}
}

func TestDecodeRecordLenientPayload(t *testing.T) {
	// malformed payload fields surface the raw string, never fail the fetch
	fields := map[string]string{
		"data":       `{not json`,
		"stacktrace": `also not json`,
	}
	job, err := decodeRecord("emails", "7", broker.StatusWaiting, fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Data != `{not json` {
		t.Fatalf("raw payload not surfaced: %#v", job.Data)
	}
	if job.Error == nil || len(job.Error.Stack) != 1 || job.Error.Stack[0] != "also not json" {
		t.Fatalf("raw stacktrace not surfaced: %+v", job.Error)
	}
}

func TestDecodeRecordStrictStructural(t *testing.T) {
	for _, fields := range []map[string]string{
		{"timestamp": "yesterday"},
		{"processedOn": "1.5e3x"},
		{"finishedOn": "soon"},
		{"attemptsMade": "two"},
	} {
		if _, err := decodeRecord("emails", "7", broker.StatusWaiting, fields); !broker.IsKind(err, broker.KindDecode) {
			t.Fatalf("fields %v: want decode error, got %v", fields, err)
		}
	}
}

func TestDecodeRecordDelayedRelease(t *testing.T) {
	fields := map[string]string{"timestamp": "1000", "delay": "60000"}
	job, err := decodeRecord("emails", "7", broker.StatusDelayed, fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := time.UnixMilli(61000).UTC()
	if job.DelayedUntil == nil || !job.DelayedUntil.Equal(want) {
		t.Fatalf("release = %v, want %v", job.DelayedUntil, want)
	}
	// bad delay is structural
	if _, err := decodeRecord("emails", "7", broker.StatusDelayed, map[string]string{"timestamp": "1000", "delay": "x"}); !broker.IsKind(err, broker.KindDecode) {
		t.Fatalf("want decode error, got %v", err)
	}
}

func TestDecodeRecordDefaults(t *testing.T) {
	job, err := decodeRecord("emails", "7", broker.StatusWaiting, map[string]string{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Attempts != 0 || job.MaxAttempts != 0 {
		t.Fatalf("counters = %d/%d", job.Attempts, job.MaxAttempts)
	}
	if job.CreatedAt != nil || job.FinishedAt != nil || job.DelayedUntil != nil {
		t.Fatalf("absent fields must stay absent: %+v", job)
	}
}
