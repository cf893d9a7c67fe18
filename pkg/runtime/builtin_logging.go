package runtime

import (
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/logging"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

func init() {
	levels := map[string]logging.Level{
		"debug":   logging.Debug,
		"info":    logging.Info,
		"notice":  logging.Notice,
		"warning": logging.Warning,
		"err":     logging.Error,
		"alert":   logging.Alert,
		"emerg":   logging.Emergency,
		"crit":    logging.Critical,
	}
	for name, level := range levels {
		RegisterBuiltin(name, makeLoggingBuiltin(level))
	}
}

// makeLoggingBuiltin creates a builtin that joins its arguments with
// spaces and logs the message at a fixed severity. The message is the
// return value.
func makeLoggingBuiltin(level logging.Level) BuiltinFunc {
	return func(c *CallContext) (types.Value, error) {
		parts := make([]string, len(c.Arguments()))
		for i, arg := range c.Arguments() {
			parts[i] = arg.String()
		}
		message := strings.Join(parts, " ")
		e := c.Evaluator()
		e.Context().Logger().Log(logging.Record{
			Level:   level,
			Path:    e.Path(),
			Pos:     c.Position(),
			Snippet: lexer.LineText(e.source, c.Position()),
			Message: message,
		})
		return types.NewString(message), nil
	}
}
