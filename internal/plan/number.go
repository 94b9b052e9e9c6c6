package plan

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
)

//nolint:gochecknoglobals // compiled once.
var leadingNumberRe = regexp.MustCompile(`^-?\d+(?:\.\d+)?`)

// Number is a float that also decodes from strings with a leading number such as "30" or "30 mins", which
// generated replies use now and then.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "decode number string")
		}
		m := leadingNumberRe.FindString(strings.TrimSpace(s))
		if m == "" {
			return errors.New("not a number: " + strconv.Quote(s))
		}
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return errors.Wrap(err, "parse number string")
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "decode number")
	}
	*n = Number(v)
	return nil
}

// Float returns n as float64.
func (n Number) Float() float64 {
	return float64(n)
}

// Text is a string that also accepts a JSON number, e.g. a quantity of 120 instead of "120 g".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "decode text")
		}
		*t = Text(s)
	default:
		var v json.Number
		if err := json.Unmarshal(data, &v); err != nil {
			return errors.Wrap(err, "decode text")
		}
		*t = Text(v.String())
	}
	return nil
}
