package queuesvc

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/kyled7/queue-vision/internal/broker"
)

// jobFilter wraps a compiled CEL program evaluated against decoded jobs.
// When disabled, Eval always returns true.
type jobFilter struct {
	prog    cel.Program
	enabled bool
}

func newJobFilter(expr string) (jobFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return jobFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("queue", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("attempts", cel.IntType),
		cel.Variable("max_attempts", cel.IntType),
		// Decoded job payload for field filtering
		cel.Variable("data", cel.DynType),
		cel.Variable("failed_reason", cel.StringType),
		cel.Variable("created_ms", cel.IntType),
		cel.Variable("finished_ms", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return jobFilter{}, broker.Wrap(broker.KindInternal, err, "build filter env")
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return jobFilter{}, broker.Wrap(broker.KindInvalidArgument, iss.Err(), "compile filter")
	}
	prog, err := env.Program(ast)
	if err != nil {
		return jobFilter{}, broker.Wrap(broker.KindInternal, err, "build filter program")
	}
	return jobFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against a job. When disabled,
// returns true. Evaluation errors reject the job rather than the page.
func (f jobFilter) Eval(job broker.Job) bool {
	if !f.enabled {
		return true
	}
	failedReason := ""
	if job.Error != nil {
		failedReason = job.Error.Message
	}
	out, _, err := f.prog.Eval(map[string]any{
		"id":            job.ID,
		"queue":         job.Queue,
		"status":        string(job.Status),
		"attempts":      int64(job.Attempts),
		"max_attempts":  int64(job.MaxAttempts),
		"data":          job.Data,
		"failed_reason": failedReason,
		"created_ms":    millisOrZero(job.CreatedAt),
		"finished_ms":   millisOrZero(job.FinishedAt),
		"now_ms":        time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func millisOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}
