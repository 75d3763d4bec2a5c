// Package content loads catalog definitions (avatars, elements, map
// templates) from YAML files for database seeding.
package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/metagrid-dev/metagrid/internal/game/space"
)

// AvatarDef is a YAML avatar definition.
type AvatarDef struct {
	Name     string `yaml:"name"`
	ImageURL string `yaml:"imageUrl"`
}

// ElementDef is a YAML element definition. Key is a file-local handle
// referenced by map placements; it is not persisted.
type ElementDef struct {
	Key      string `yaml:"key"`
	ImageURL string `yaml:"imageUrl"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Static   bool   `yaml:"static"`
}

// PlacementDef positions an element (by key) within a map definition.
type PlacementDef struct {
	Element string `yaml:"element"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
}

// MapDef is a YAML map template definition.
type MapDef struct {
	Name       string         `yaml:"name"`
	Thumbnail  string         `yaml:"thumbnail"`
	Dimensions string         `yaml:"dimensions"`
	Elements   []PlacementDef `yaml:"elements"`
}

// Catalog is the root of a content YAML file.
type Catalog struct {
	Avatars  []AvatarDef  `yaml:"avatars"`
	Elements []ElementDef `yaml:"elements"`
	Maps     []MapDef     `yaml:"maps"`
}

// Load reads and validates a catalog definition file.
//
// Precondition: path must reference a readable YAML file.
// Postcondition: Returns a validated Catalog or an error describing
// the first violation.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content file: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing content file: %w", err)
	}

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("validating content file %s: %w", path, err)
	}
	return &cat, nil
}

// Validate checks the catalog's internal consistency.
//
// Postcondition: Returns nil when every element has a unique key and
// positive dimensions, every map has parseable dimensions, and every
// placement references a defined element key.
func (c *Catalog) Validate() error {
	keys := make(map[string]bool, len(c.Elements))
	for i, e := range c.Elements {
		if e.Key == "" {
			return fmt.Errorf("element %d: key is required", i)
		}
		if keys[e.Key] {
			return fmt.Errorf("element %q: duplicate key", e.Key)
		}
		keys[e.Key] = true
		if e.ImageURL == "" {
			return fmt.Errorf("element %q: imageUrl is required", e.Key)
		}
		if e.Width <= 0 || e.Height <= 0 {
			return fmt.Errorf("element %q: dimensions must be positive", e.Key)
		}
	}

	for i, a := range c.Avatars {
		if a.Name == "" || a.ImageURL == "" {
			return fmt.Errorf("avatar %d: name and imageUrl are required", i)
		}
	}

	for _, m := range c.Maps {
		if m.Name == "" {
			return fmt.Errorf("map with dimensions %q: name is required", m.Dimensions)
		}
		dim, err := space.ParseDimensions(m.Dimensions)
		if err != nil {
			return fmt.Errorf("map %q: %w", m.Name, err)
		}
		for _, p := range m.Elements {
			if !keys[p.Element] {
				return fmt.Errorf("map %q: placement references unknown element %q", m.Name, p.Element)
			}
			if p.X < 0 || p.Y < 0 || p.X >= dim.Width || p.Y >= dim.Height {
				return fmt.Errorf("map %q: placement of %q at (%d,%d) is out of bounds", m.Name, p.Element, p.X, p.Y)
			}
		}
	}

	return nil
}
