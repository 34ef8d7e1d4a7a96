package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/conftree/internal/tree"
)

// ErrUnsupportedFormat is returned for file extensions no codec handles.
var ErrUnsupportedFormat = errors.New("unsupported configuration format")

// Loader reads and writes configuration trees on a filesystem. The billy
// abstraction keeps the loader testable against an in-memory filesystem.
type Loader struct {
	fs billy.Filesystem
}

// New creates a loader over the given filesystem.
func New(fs billy.Filesystem) *Loader {
	return &Loader{fs: fs}
}

// Load reads the file and decodes it into a tree. The format is chosen by
// file extension.
func (l *Loader) Load(path string) (*tree.Node, error) {
	data, err := util.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Save encodes the tree and writes it to the file. The format is chosen by
// file extension.
func (l *Loader) Save(path string, node *tree.Node) error {
	data, err := Dump(node, path)
	if err != nil {
		return err
	}
	if err := util.WriteFile(l.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Parse decodes raw document data; path supplies the format extension.
func Parse(data []byte, path string) (*tree.Node, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	case ".hcl", ".tf":
		return ParseHCL(data, path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

// Dump encodes a tree; path supplies the format extension. HCL is read-only.
func Dump(node *tree.Node, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DumpJSON(node), nil
	case ".yaml", ".yml":
		return DumpYAML(node)
	case ".toml":
		return DumpTOML(node)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}
