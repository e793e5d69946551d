package script

import (
	"strconv"

	cerrors "github.com/cinderlang/cinder/pkg/cinder/errors"
)

// ReadArgs evaluates exactly n arguments in left-to-right order. An arity
// mismatch aborts before anything is evaluated; an evaluation failure aborts
// without evaluating the arguments after it.
func ReadArgs(ctx *Context, name string, argv []Expr, n int) ([]string, error) {
	if len(argv) != n {
		return nil, cerrors.New("CALL-0001", map[string]any{
			"Function": name,
			"Expected": n,
			"Got":      len(argv),
		})
	}
	return ReadVarArgs(ctx, argv)
}

// ReadVarArgs evaluates every argument in left-to-right order. On the first
// evaluation failure the partial results are dropped and the abort propagates.
func ReadVarArgs(ctx *Context, argv []Expr) ([]string, error) {
	args := make([]string, 0, len(argv))
	for _, e := range argv {
		v, err := e.Eval(ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// nonEmpty aborts when a required textual parameter is empty.
func nonEmpty(name, param, value string) error {
	if value == "" {
		return cerrors.New("ARG-0001", map[string]any{
			"Function": name,
			"Param":    param,
		})
	}
	return nil
}

// parseNumField parses an unsigned numeric script argument. Base 0 accepts
// bare decimal alongside 0x and leading-zero octal forms. Empty strings and
// trailing garbage abort: malformed numeric arguments are script bugs, not
// operational failures.
func parseNumField(name, param, value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, cerrors.New("ARG-0002", map[string]any{
			"Function": name,
			"Param":    param,
			"Value":    value,
		})
	}
	return uint32(n), nil
}
