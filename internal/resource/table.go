package resource

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed resources.yaml
var defaultTable []byte

// Encoding selects the outbound body format for create and update.
type Encoding string

const (
	EncodingMultipart Encoding = "multipart"
	EncodingJSON      Encoding = "json"
)

// Config parametrizes the generic list/form pair for one resource type.
type Config struct {
	Key                   string    `yaml:"key"`
	Label                 string    `yaml:"label"`
	Plural                string    `yaml:"plural"`
	Path                  string    `yaml:"path"`
	ImageMode             ImageMode `yaml:"image_mode"`
	Encoding              Encoding  `yaml:"encoding"`
	ImageRequiredOnCreate bool      `yaml:"image_required_on_create"`
	EmptyText             string    `yaml:"empty_text"`
}

// ItemPath returns the path for one record.
func (c Config) ItemPath(id string) string {
	return strings.TrimRight(c.Path, "/") + "/" + id
}

func (c Config) validate() error {
	if c.Key == "" {
		return fmt.Errorf("resource key is required")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("resource %s: path must start with /", c.Key)
	}
	switch c.ImageMode {
	case ImageTagged, ImageBare:
	default:
		return fmt.Errorf("resource %s: unknown image_mode %q", c.Key, c.ImageMode)
	}
	switch c.Encoding {
	case EncodingMultipart, EncodingJSON:
	default:
		return fmt.Errorf("resource %s: unknown encoding %q", c.Key, c.Encoding)
	}
	return nil
}

// Table is the ordered set of configured resources.
type Table struct {
	Resources []Config `yaml:"resources"`
}

// Lookup finds a resource by key.
func (t *Table) Lookup(key string) (Config, bool) {
	for _, c := range t.Resources {
		if c.Key == key {
			return c, true
		}
	}
	return Config{}, false
}

// Keys lists resource keys in table order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.Resources))
	for i, c := range t.Resources {
		keys[i] = c.Key
	}
	return keys
}

// ParseTable decodes and validates a YAML resource table, filling in
// defaults for optional fields.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse resource table: %w", err)
	}
	if len(t.Resources) == 0 {
		return nil, fmt.Errorf("resource table is empty")
	}

	seen := make(map[string]bool, len(t.Resources))
	for i := range t.Resources {
		c := &t.Resources[i]
		if err := c.validate(); err != nil {
			return nil, err
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("duplicate resource key %q", c.Key)
		}
		seen[c.Key] = true

		if c.Label == "" {
			c.Label = c.Key
		}
		if c.Plural == "" {
			c.Plural = c.Key
		}
		if c.EmptyText == "" {
			c.EmptyText = "No items found."
		}
	}
	return &t, nil
}

// LoadTable reads the table from path, or the built-in table when path is
// empty.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return ParseTable(defaultTable)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource table: %w", err)
	}
	return ParseTable(data)
}

// DefaultTable returns the built-in resource table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTable)
	if err != nil {
		panic(err)
	}
	return t
}
