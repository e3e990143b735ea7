package totalsvc

import (
	"strings"

	"github.com/google/cel-go/cel"
)

// celFilter wraps a compiled CEL program evaluated per event. When disabled,
// Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("total", cel.IntType),
		cel.Variable("value", cel.IntType),
		cel.Variable("submitter", cel.StringType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return celFilter{}, errNotBool
	}
	prog, err := env.Program(ast)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval reports whether ev passes the filter with now_ms bound to nowMs.
// Evaluation errors drop the event.
func (f celFilter) Eval(ev Event, nowMs int64) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"total":     int64(ev.Total),
		"value":     int64(ev.Value),
		"submitter": ev.Submitter,
		"seq":       int64(ev.Seq),
		"ts_ms":     ev.AtMs,
		"now_ms":    nowMs,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
