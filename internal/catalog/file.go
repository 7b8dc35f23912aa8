package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avvvet/toywonder-assistant/internal/models"
)

type catalogFile struct {
	Products []models.Product `yaml:"products"`
}

// LoadFile reads a YAML product list:
//
//	products:
//	  - id: "1"
//	    name: Speed Racer RC
//	    category: Outdoor Fun
func LoadFile(path string) ([]models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML product list
func Parse(data []byte) ([]models.Product, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}

	seen := make(map[string]struct{}, len(f.Products))
	for i, p := range f.Products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("product %d: id and name are required", i)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return f.Products, nil
}
