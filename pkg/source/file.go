package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	variants "github.com/goliatone/go-variants"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat indicates a file extension LoadFile cannot decode.
var ErrUnsupportedFormat = errors.New("source: unsupported file format")

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf infers the format from the path extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadFile reads a flat key/value document. Nested objects are kept as
// structured variant values.
func LoadFile(path string) (map[string]any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	values, err := Decode(format, payload)
	if err != nil {
		return nil, fmt.Errorf("source: decode %s: %w", path, err)
	}
	return values, nil
}

// Decode parses payload in format. JSON numbers are kept as json.Number so
// integer variants convert without float rounding.
func Decode(format Format, payload []byte) (map[string]any, error) {
	values := map[string]any{}
	if len(bytes.TrimSpace(payload)) == 0 {
		return values, nil
	}
	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(payload))
		decoder.UseNumber()
		if err := decoder.Decode(&values); err != nil {
			return nil, err
		}
	case FormatYAML:
		var raw map[string]any
		if err := yaml.Unmarshal(payload, &raw); err != nil {
			return nil, err
		}
		for key, value := range raw {
			values[key] = normalize(value)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return values, nil
}

// normalize turns YAML's map[any]any nodes into map[string]any.
func normalize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalize(item)
		}
		return out
	default:
		return value
	}
}

// FileOption configures a File source.
type FileOption func(*File)

// WithFileLogger sets the logger used to report reload failures.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// File serves the assignments stored in a JSON or YAML file. A failed reload
// keeps the last good assignments.
type File struct {
	path    string
	mem     *Memory
	logger  *slog.Logger
	mu      sync.Mutex
	lastErr error
}

// NewFile loads path. The initial load must succeed.
func NewFile(path string, opts ...FileOption) (*File, error) {
	values, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	f := &File{
		path:   path,
		mem:    NewMemory(values),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Path returns the watched file path.
func (f *File) Path() string {
	return f.path
}

// Assignments implements variants.Source.
func (f *File) Assignments() variants.Assignments {
	return f.mem.Assignments()
}

// Subscribe forwards to the underlying memory source.
func (f *File) Subscribe(fn func(variants.Assignments)) (cancel func()) {
	return f.mem.Subscribe(fn)
}

// Reload re-reads the file and publishes a new revision.
func (f *File) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := LoadFile(f.path)
	if err != nil {
		f.lastErr = err
		f.logger.Warn("variant file reload failed, keeping last good state",
			slog.String("path", f.path),
			slog.Uint64("revision", f.mem.Revision()),
			slog.String("error", err.Error()),
		)
		return err
	}
	f.lastErr = nil
	revision := f.mem.Replace(values)
	f.logger.Info("variant file reloaded",
		slog.String("path", f.path),
		slog.Uint64("revision", revision),
		slog.Int("keys", len(values)),
	)
	return nil
}

// LastError returns the error of the most recent reload, if it failed.
func (f *File) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}
