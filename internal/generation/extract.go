package generation

import (
	"encoding/json"
	"log/slog"
	"maps"
	"regexp"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
)

var (
	ErrNoPayload      = errors.NewSentinel("no JSON object in reply")
	ErrMissingSection = errors.NewSentinel("payload section missing")
)

//nolint:gochecknoglobals // compiled once.
var outputBlockRe = regexp.MustCompile(`(?s)<output>(.*?)</output>`)

// Payload is the top-level JSON object of a reply. Sections are decoded lazily with [Payload.Decode] so that partial
// or unexpected sections never fail the whole reply.
type Payload map[string]json.RawMessage

// Has reports whether section is present.
func (p Payload) Has(section string) bool {
	_, ok := p[section]
	return ok
}

// Decode unmarshals section into v.
func (p Payload) Decode(section string, v any) error {
	raw, ok := p[section]
	if !ok {
		return errors.Wrap(ErrMissingSection, "decode payload", slog.String("section", section))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, "decode payload", slog.String("section", section))
	}
	return nil
}

// Clone returns a shallow copy. The raw messages themselves are never modified, so sharing them is fine.
func (p Payload) Clone() Payload {
	return maps.Clone(p)
}

// ExtractPayload finds the JSON object in a reply.
//
// The first <output>...</output> block is used when there is one. Otherwise the text from the first '{' to the last
// '}' is tried.
func ExtractPayload(text string) (Payload, error) {
	var candidate string
	if m := outputBlockRe.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	} else {
		start := strings.IndexByte(text, '{')
		end := strings.LastIndexByte(text, '}')
		if start < 0 || end <= start {
			return nil, ErrNoPayload
		}
		candidate = text[start : end+1]
	}

	var p Payload
	if err := json.Unmarshal([]byte(candidate), &p); err != nil {
		return nil, errors.Wrap(err, "decode reply JSON")
	}
	if p == nil {
		return nil, errors.Wrap(ErrNoPayload, "reply JSON is null")
	}
	return p, nil
}
