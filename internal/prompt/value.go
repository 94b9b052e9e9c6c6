package prompt

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/myrjola/fitplan/internal/errors"
)

// Kind tags the type of a placeholder Value.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStructured:
		return "structured"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a placeholder substitution. The zero Value is empty text.
type Value struct {
	kind       Kind
	text       string
	number     float64
	boolean    bool
	structured any
}

// Text substitutes s as is.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number substitutes v in plain decimal notation without exponent, e.g. 1375 or 412.5.
func Number(v float64) Value {
	return Value{kind: KindNumber, number: v}
}

// Int is a convenience for whole numbers.
func Int(v int) Value {
	return Number(float64(v))
}

// Bool substitutes true or false.
func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// Structured substitutes the JSON encoding of v. Map keys are sorted, so equal inputs always render to equal text.
func Structured(v any) Value {
	return Value{kind: KindStructured, structured: v}
}

// Kind reports the tag of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Render stringifies v. Only structured values can fail, when they aren't JSON encodable.
func (v Value) Render() (string, error) {
	switch v.kind {
	case KindText:
		return v.text, nil
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64), nil
	case KindBool:
		return strconv.FormatBool(v.boolean), nil
	case KindStructured:
		b, err := json.Marshal(v.structured)
		if err != nil {
			return "", errors.Wrap(errors.Join(ErrTemplate, err), "render structured value")
		}
		return string(b), nil
	default:
		return "", errors.Wrap(ErrTemplate, "unknown value kind", slog.String("kind", v.kind.String()))
	}
}
