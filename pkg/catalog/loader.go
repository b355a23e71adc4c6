package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"mercator-hq/formula/pkg/formula"
	"mercator-hq/formula/pkg/telemetry/metrics"
)

var formulaNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("formula_name", func(fl validator.FieldLevel) bool {
		return formulaNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Loader reads catalog files and compiles their formulas through an engine.
// Every expression passes the engine's security gate, so rejected formulas
// are audited like any other input.
type Loader struct {
	engine  *formula.Engine
	config  *LoaderConfig
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewLoader creates a loader. A nil config uses DefaultLoaderConfig.
func NewLoader(engine *formula.Engine, config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{
		engine: engine,
		config: config,
		logger: slog.Default().With("component", "catalog.loader"),
	}
}

// WithMetrics makes catalogs built by this loader count named evaluations.
func (l *Loader) WithMetrics(m *metrics.Collector) *Loader {
	l.metrics = m
	return l
}

// Load reads a catalog file, or every catalog file under a directory, and
// compiles it. Loading is all or nothing: any problem yields a nil catalog
// and an error describing every problem found.
func (l *Loader) Load(path string) (*Catalog, error) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to access path", Cause: err}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = l.collectFiles(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, &LoadError{FilePath: path, Message: "no catalog files found in directory"}
		}
	}

	cat := newCatalog(l.metrics)
	errList := &ErrorList{}
	for _, file := range files {
		parsed, err := l.readFile(file)
		if err != nil {
			errList.Add(err)
			continue
		}
		for i := range parsed.Formulas {
			errList.Add(l.addFormula(cat, file, i, &parsed.Formulas[i]))
		}
		cat.files = append(cat.files, file)
	}

	if err := errList.ToError(); err != nil {
		return nil, err
	}

	cat.loadedAt = time.Now()
	l.logger.Debug("catalog loaded",
		"path", path,
		"files", len(cat.files),
		"formulas", cat.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return cat, nil
}

// LoadBytes compiles a single catalog document. name labels errors.
func (l *Loader) LoadBytes(name string, data []byte) (*Catalog, error) {
	parsed, err := decode(name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	cat := newCatalog(l.metrics)
	errList := &ErrorList{}
	for i := range parsed.Formulas {
		errList.Add(l.addFormula(cat, name, i, &parsed.Formulas[i]))
	}
	if err := errList.ToError(); err != nil {
		return nil, err
	}
	cat.files = []string{name}
	cat.loadedAt = time.Now()
	return cat, nil
}

func (l *Loader) addFormula(cat *Catalog, file string, index int, f *Formula) error {
	name := f.Name
	if name == "" {
		name = fmt.Sprintf("#%d", index)
	}

	if err := structValidator.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &FormulaError{FilePath: file, Name: name, Field: fe.Field(), Message: fmt.Sprintf("failed %q validation", fe.Tag())}
		}
		return &FormulaError{FilePath: file, Name: name, Message: "invalid formula", Cause: err}
	}

	if prev, ok := cat.entries[f.Name]; ok {
		return &FormulaError{FilePath: file, Name: name, Message: fmt.Sprintf("duplicate name, first defined in %s", prev.File)}
	}

	program, err := l.engine.Compile(f.Expression)
	if err != nil {
		return &FormulaError{FilePath: file, Name: name, Field: "expression", Message: "does not compile", Cause: err}
	}

	if f.Kind == "" {
		f.Kind = KindValue
	}
	cat.add(&Entry{Formula: *f, File: file, Program: program})
	return nil
}

func (l *Loader) readFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	return decode(path, bytes.NewReader(data))
}

func decode(name string, r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ParseError{FilePath: name, Line: yamlLine(err), Message: "YAML parsing failed", Cause: err}
	}
	if f.Version != "" && f.Version != "1" {
		return nil, &ParseError{FilePath: name, Message: fmt.Sprintf("unsupported catalog version %q", f.Version)}
	}
	return &f, nil
}

// yamlLine extracts the line number from a yaml.v3 error message.
func yamlLine(err error) int {
	var line int
	msg := err.Error()
	if i := strings.Index(msg, "line "); i >= 0 {
		fmt.Sscanf(msg[i:], "line %d", &line)
	}
	return line
}

// collectFiles returns the sorted catalog files under dir.
func (l *Loader) collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !l.hasValidExtension(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range l.config.AllowedExtensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}
