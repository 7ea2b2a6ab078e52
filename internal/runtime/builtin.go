package runtime

import (
	"fmt"
	"io"
	"strings"
)

// BuiltinFn is the Go implementation of an external function.
type BuiltinFn func(args []Value) (Value, error)

// Builtins returns the external functions a module may declare, keyed by
// symbol name. printf writes to w.
func Builtins(w io.Writer) map[string]BuiltinFn {
	return map[string]BuiltinFn{
		"printf": func(args []Value) (Value, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("printf() expects a format string")
			}
			format, ok := args[0].(StringVal)
			if !ok {
				return nil, fmt.Errorf("printf() format must be a string, got '%s'", args[0].TypeName())
			}
			out, err := formatC(string(format), args[1:])
			if err != nil {
				return nil, err
			}
			n, err := io.WriteString(w, out)
			if err != nil {
				return nil, err
			}
			return IntVal(n), nil
		},

		"length": func(args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("length() expects 1 argument, got %d", len(args))
			}
			s, ok := args[0].(StringVal)
			if !ok {
				return nil, fmt.Errorf("length() not supported for type '%s'", args[0].TypeName())
			}
			return IntVal(len(s)), nil
		},
	}
}

// formatC expands a C printf format. Integer conversions take their
// argument as a C int; %s takes a string pointer.
func formatC(format string, args []Value) (string, error) {
	var sb strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}

		// %[flags][width][.precision][length]verb
		j := i + 1
		for j < len(format) && strings.IndexByte("-+ 0#", format[j]) >= 0 {
			j++
		}
		for j < len(format) && (format[j] >= '0' && format[j] <= '9' || format[j] == '.') {
			j++
		}
		mods := format[i+1 : j]
		for j < len(format) && strings.IndexByte("hlzjt", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			return "", fmt.Errorf("printf() format ends inside a conversion")
		}
		verb := format[j]
		i = j

		if verb == '%' {
			sb.WriteByte('%')
			continue
		}
		if next >= len(args) {
			return "", fmt.Errorf("printf() format %q needs more than %d arguments", format, len(args))
		}
		arg := args[next]
		next++

		switch verb {
		case 'd', 'i', 'u', 'x', 'X', 'o', 'c':
			n, ok := ToInt64(arg)
			if !ok {
				return "", fmt.Errorf("printf() %%%c expects an integer, got '%s'", verb, arg.TypeName())
			}
			goVerb := verb
			switch verb {
			case 'i':
				goVerb = 'd'
			case 'u':
				goVerb = 'd'
				n = int64(uint32(n))
			case 'x', 'X', 'o':
				n = int64(uint32(n))
			}
			fmt.Fprintf(&sb, "%"+mods+string(goVerb), n)
		case 's':
			s, ok := arg.(StringVal)
			if !ok {
				return "", fmt.Errorf("printf() %%s expects a string, got '%s'", arg.TypeName())
			}
			fmt.Fprintf(&sb, "%"+mods+"s", string(s))
		default:
			return "", fmt.Errorf("printf() conversion %%%c is not supported", verb)
		}
	}
	return sb.String(), nil
}
