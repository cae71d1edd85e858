package schema

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// catalogFile is the on-disk snapshot layout.
type catalogFile struct {
	FieldTypes map[string][]string `yaml:"field_types"`
}

// DefaultCatalog returns the built-in seed catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalogYAML(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("schema: embedded catalog: %v", err))
	}
	return c
}

// ParseCatalogYAML decodes a catalog snapshot.
func ParseCatalogYAML(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(f.FieldTypes), nil
}

// LoadCatalogYAML reads a catalog snapshot from disk.
func LoadCatalogYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalogYAML(data)
}

// WriteCatalogYAML encodes c as a snapshot readable by ParseCatalogYAML.
func WriteCatalogYAML(w io.Writer, c *Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(catalogFile{FieldTypes: c.Map()}); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return enc.Close()
}
