// Package prompt keeps the versioned system prompts of the plan generators and fills in their placeholders.
//
// A placeholder is an identifier in braces, e.g. {user}. Braces around anything else, such as the JSON examples in
// the templates, are left alone, and so are placeholders without a value.
package prompt

import (
	"embed"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/myrjola/fitplan/internal/errors"
)

// Template names.
const (
	Workout   = "workout"
	Nutrition = "nutrition"
)

// UserPlaceholder receives the structured context passed to [Manager.Format].
const UserPlaceholder = "user"

var (
	ErrTemplate        = errors.NewSentinel("prompt template error")
	ErrUnknownTemplate = errors.Wrap(ErrTemplate, "unknown template")
	ErrUnknownVersion  = errors.Wrap(ErrTemplate, "unknown template version")
)

//go:embed templates/*.txt
var templateFS embed.FS

//nolint:gochecknoglobals // compiled once.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type versions struct {
	current string
	texts   map[string]string
}

// Manager holds the templates. It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	templates map[string]*versions
}

// NewManager returns a Manager loaded with the embedded templates. Each file templates/<name>_<version>.txt adds a
// version, and the lexically greatest version of a name becomes current.
func NewManager() (*Manager, error) {
	m := &Manager{templates: make(map[string]*versions)}
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, errors.Wrap(err, "read embedded templates")
	}
	for _, e := range entries {
		base := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		i := strings.LastIndexByte(base, '_')
		if i <= 0 {
			return nil, errors.Wrap(ErrTemplate, "template file name must be <name>_<version>.txt",
				slog.String("file", e.Name()))
		}
		text, readErr := fs.ReadFile(templateFS, path.Join("templates", e.Name()))
		if readErr != nil {
			return nil, errors.Wrap(readErr, "read template", slog.String("file", e.Name()))
		}
		name, version := base[:i], base[i+1:]
		makeCurrent := true
		if v, ok := m.templates[name]; ok && v.current > version {
			makeCurrent = false
		}
		m.Register(name, version, string(text), makeCurrent)
	}
	return m, nil
}

// Register adds or replaces a template version. The first version of a name is always current.
func (m *Manager) Register(name, version, text string, makeCurrent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.templates[name]
	if !ok {
		v = &versions{current: version, texts: make(map[string]string)}
		m.templates[name] = v
	}
	v.texts[version] = text
	if makeCurrent {
		v.current = version
	}
}

// SetCurrent points name at an already registered version.
func (m *Manager) SetCurrent(name, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.templates[name]
	if !ok {
		return errors.Wrap(ErrUnknownTemplate, "set current", slog.String("template", name))
	}
	if _, ok = v.texts[version]; !ok {
		return errors.Wrap(ErrUnknownVersion, "set current",
			slog.String("template", name), slog.String("version", version))
	}
	v.current = version
	return nil
}

// Current returns the current version of name.
func (m *Manager) Current(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.templates[name]
	if !ok {
		return "", errors.Wrap(ErrUnknownTemplate, "current version", slog.String("template", name))
	}
	return v.current, nil
}

// Get returns the raw text of a template. An empty version selects the current one.
func (m *Manager) Get(name, version string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.templates[name]
	if !ok {
		return "", errors.Wrap(ErrUnknownTemplate, "get template", slog.String("template", name))
	}
	if version == "" {
		version = v.current
	}
	text, ok := v.texts[version]
	if !ok {
		return "", errors.Wrap(ErrUnknownVersion, "get template",
			slog.String("template", name), slog.String("version", version))
	}
	return text, nil
}

// Format fills the current version of name. user goes into {user} and each extra into {key}.
func (m *Manager) Format(name string, user Value, extras map[string]Value) (string, error) {
	return m.FormatVersion(name, "", user, extras)
}

// FormatVersion is Format for a specific version.
//
// Substitution happens in a single pass, so braces inside substituted values are never expanded again. An extra
// named "user" is shadowed by user.
func (m *Manager) FormatVersion(name, version string, user Value, extras map[string]Value) (string, error) {
	text, err := m.Get(name, version)
	if err != nil {
		return "", err
	}

	rendered := make(map[string]string, len(extras)+1)
	for key, val := range extras {
		if rendered[key], err = val.Render(); err != nil {
			return "", errors.Wrap(err, "render placeholder", slog.String("placeholder", key))
		}
	}
	if rendered[UserPlaceholder], err = user.Render(); err != nil {
		return "", errors.Wrap(err, "render user context", slog.String("template", name))
	}

	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		if s, ok := rendered[match[1:len(match)-1]]; ok {
			return s
		}
		return match
	}), nil
}
