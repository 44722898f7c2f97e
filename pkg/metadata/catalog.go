package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stacksolve/pkg/artifact"
	"github.com/matzehuels/stacksolve/pkg/cache"
	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// Format names a catalog encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unknown catalog format: %s", path)
}

// DecodeDocument reads a catalog document in the given format.
func DecodeDocument(r io.Reader, format Format) (Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatTOML:
		var md toml.MetaData
		md, err = toml.NewDecoder(r).Decode(&doc)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				err = fmt.Errorf("unknown key %q", undecoded[0].String())
			}
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&doc)
		if err == io.EOF {
			err = nil
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		return doc, errors.New(errors.ErrCodeUnsupported, "unknown catalog format %q", format)
	}
	if err != nil {
		return doc, errors.Wrap(errors.ErrCodeMetadata, err, "decode %s catalog", format)
	}
	return doc, nil
}

// Catalog is an in-memory Provider built from a Document. It also locates
// declared artifacts, so it can back an artifact.DefaultResolver.
//
// A Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	name       string
	versions   map[selector.ModuleIdentifier][]selector.Version
	components map[selector.ComponentIdentifier]*ComponentMetadata
	projects   map[string]*ComponentMetadata
	locations  map[artifact.Identifier]string
}

// NewCatalog indexes doc. Relative artifact locations are resolved against
// baseDir. Duplicate components are rejected.
func NewCatalog(name string, doc Document, baseDir string) (*Catalog, error) {
	c := &Catalog{
		name:       name,
		versions:   make(map[selector.ModuleIdentifier][]selector.Version),
		components: make(map[selector.ComponentIdentifier]*ComponentMetadata),
		projects:   make(map[string]*ComponentMetadata),
		locations:  make(map[artifact.Identifier]string),
	}
	for _, d := range doc.Projects {
		if d.Path == "" {
			return nil, errors.New(errors.ErrCodeMetadata, "%s: project entry without path", name)
		}
		m, err := d.Metadata()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMetadata, err, "%s: project %s", name, d.Path)
		}
		if _, dup := c.projects[d.Path]; dup {
			return nil, errors.New(errors.ErrCodeMetadata, "%s: duplicate project %s", name, d.Path)
		}
		c.projects[d.Path] = m
		c.addLocations(m.ID, d.Artifacts, baseDir)
	}
	for _, d := range doc.Components {
		if d.Path != "" {
			return nil, errors.New(errors.ErrCodeMetadata, "%s: component entry with project path %s", name, d.Path)
		}
		m, err := d.Metadata()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMetadata, err, "%s: component %s:%s", name, d.Module, d.Version)
		}
		if _, dup := c.components[m.ID]; dup {
			return nil, errors.New(errors.ErrCodeMetadata, "%s: duplicate component %s", name, m.ID)
		}
		c.components[m.ID] = m
		c.versions[m.ID.Module] = append(c.versions[m.ID.Module], selector.MustParseVersion(m.ID.Version))
		c.addLocations(m.ID, d.Artifacts, baseDir)
	}
	for _, vs := range c.versions {
		selector.SortVersions(vs)
	}
	return c, nil
}

func (c *Catalog) addLocations(id selector.ComponentIdentifier, docs []ArtifactDoc, baseDir string) {
	for _, a := range docs {
		if a.Location == "" {
			continue
		}
		loc := a.Location
		if !filepath.IsAbs(loc) && baseDir != "" {
			loc = filepath.Join(baseDir, loc)
		}
		c.locations[artifact.Identifier{Component: id, Name: a.ArtifactName()}] = loc
	}
}

// LoadCatalog reads a catalog file. The format follows the extension.
func LoadCatalog(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "read catalog")
	}
	doc, err := DecodeDocument(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return NewCatalog(filepath.Base(path), doc, filepath.Dir(path))
}

// Name identifies the catalog in cache keys and log lines.
func (c *Catalog) Name() string { return c.name }

// Modules returns every published module, sorted.
func (c *Catalog) Modules() []selector.ModuleIdentifier {
	out := make([]selector.ModuleIdentifier, 0, len(c.versions))
	for m := range c.versions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Versions returns the published versions of module, ascending.
func (c *Catalog) Versions(ctx context.Context, module selector.ModuleIdentifier) ([]selector.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vs, ok := c.versions[module]
	if !ok {
		return nil, notFound("module %s", module)
	}
	return append([]selector.Version(nil), vs...), nil
}

// Metadata returns the declaration of id.
func (c *Catalog) Metadata(ctx context.Context, id selector.ComponentIdentifier) (*ComponentMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, ok := c.components[id]
	if !ok {
		return nil, notFound("component %s", id)
	}
	return m, nil
}

// Project returns the declaration of the project at path.
func (c *Catalog) Project(ctx context.Context, path string) (*ComponentMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, ok := c.projects[path]
	if !ok {
		return nil, notFound("project %s", path)
	}
	return m, nil
}

// Locate returns the declared location of an artifact.
func (c *Catalog) Locate(ctx context.Context, id artifact.Identifier) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	loc, ok := c.locations[id]
	if !ok {
		return "", fmt.Errorf("%s: %w", id, artifact.ErrNotFound)
	}
	return loc, nil
}

func notFound(format string, args ...any) error {
	return errors.Wrap(errors.ErrCodeModuleNotFound, cache.ErrNotFound, format, args...)
}

var (
	_ Provider                 = (*Catalog)(nil)
	_ artifact.ContentResolver = (*Catalog)(nil)
)
