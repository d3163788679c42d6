package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

const defaultCacheSize = 64

// Source resolves artifacts by contract name.
type Source interface {
	Artifact(name string) (*Artifact, error)
}

// MemSource serves artifacts held in memory.
type MemSource map[string]*Artifact

func (m MemSource) Artifact(name string) (*Artifact, error) {
	a, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return a, nil
}

// DirSource serves artifacts from a hardhat artifacts directory,
// laid out as <root>/**/<Name>.sol/<Name>.json.
type DirSource struct {
	fs    afero.Fs
	iofs  fs.FS
	cache *lru.Cache[string, *Artifact]
}

func NewDirSource(fsys afero.Fs, root string) (*DirSource, error) {
	cache, err := lru.New[string, *Artifact](defaultCacheSize)
	if err != nil {
		return nil, err
	}
	ok, err := afero.DirExists(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifacts dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("artifacts dir %q does not exist", root)
	}
	base := afero.NewBasePathFs(fsys, root)
	return &DirSource{fs: base, iofs: afero.NewIOFS(base), cache: cache}, nil
}

func (d *DirSource) Artifact(name string) (*Artifact, error) {
	if a, ok := d.cache.Get(name); ok {
		return a, nil
	}
	p, err := d.find(name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(d.fs, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", p, err)
	}
	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", p, err)
	}
	d.cache.Add(name, a)
	return a, nil
}

// find globs for the artifact file, skipping the build-info debug files.
func (d *DirSource) find(name string) (string, error) {
	matches, err := doublestar.Glob(d.iofs, "**/"+name+".sol/"+name+".json")
	if err != nil {
		return "", fmt.Errorf("failed to search artifacts: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous artifact %s: %s", name, strings.Join(matches, ", "))
	}
}

// ChainSource tries each source in order.
type ChainSource []Source

func (c ChainSource) Artifact(name string) (*Artifact, error) {
	for _, src := range c {
		a, err := src.Artifact(name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return a, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}
