// Package loader reads table definitions and query specifications from
// JSON, YAML and CUE files into ir.IRValue documents.
//
// Every format keeps object key order, so column declaration order survives
// loading. A directory is loaded as one CUE package.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/specql/internal/ir"
)

// Error code constants shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No loadable files found
	ErrCodeLoadFailed  = "E004" // File could not be read or parsed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or evaluation failed
	ErrCodeFormat      = "E008" // Unsupported file extension
)

// LoadError represents an error that occurred while loading a document.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError reports whether err is a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Format is a document syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{
			Code:    ErrCodeFormat,
			Path:    path,
			Message: fmt.Sprintf("unsupported extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path)),
		}
	}
}

// LoadDefinitions loads table definitions from a file or a CUE package directory.
func LoadDefinitions(path string) (ir.IRValue, error) {
	return Load(path)
}

// LoadQuerySpec loads one query specification from a file.
func LoadQuerySpec(path string) (ir.IRValue, error) {
	return Load(path)
}

// Load reads path. Files are parsed by extension; a directory is built as
// a CUE package.
func Load(path string) (ir.IRValue, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "no such file or directory"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}
	if info.IsDir() {
		return loadCUEPackage(path)
	}

	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
	}
	return Parse(data, format, path)
}

// Parse decodes data in the given format. name labels errors and CUE positions.
func Parse(data []byte, format Format, name string) (ir.IRValue, error) {
	var (
		v   ir.IRValue
		err error
	)
	switch format {
	case FormatJSON:
		v, err = ir.ParseJSON(data)
	case FormatYAML:
		v, err = ir.ParseYAML(data)
	case FormatCUE:
		ctx := cuecontext.New()
		value := ctx.CompileBytes(data, cue.Filename(name))
		if err := value.Err(); err != nil {
			return nil, formatCUEError(err, ErrCodeBuildFailed, name)
		}
		return fromCUE(value, name)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Path: name, Message: fmt.Sprintf("unsupported format %q", format)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: name, Message: err.Error()}
	}
	return v, nil
}

func loadCUEPackage(dir string) (ir.IRValue, error) {
	files, err := FindFiles(dir, ".cue")
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Path: dir, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Path: dir, Message: "no CUE files found"}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err, ErrCodeLoadFailed, dir)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err, ErrCodeBuildFailed, dir)
	}
	return fromCUE(value, dir)
}

func fromCUE(value cue.Value, name string) (ir.IRValue, error) {
	v, err := ir.FromCUE(value)
	if err != nil {
		return nil, formatCUEError(err, ErrCodeBuildFailed, name)
	}
	return v, nil
}

// FindFiles walks dir and returns the files with one of exts, sorted.
func FindFiles(dir string, exts ...string) ([]string, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && want[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, code, path string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Path: path, Message: err.Error()}
	}

	// Report the first error with position info
	first := errs[0]
	le := &LoadError{Code: code, Path: path, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
