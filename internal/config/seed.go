package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategorySeed is one entry of the category seed file:
//
//	categories:
//	  - name: Invoices
//	    description: Bills requesting payment, with totals and due dates
type CategorySeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type categorySeedFile struct {
	Categories []CategorySeed `yaml:"categories"`
}

// LoadCategorySeed reads the seed file. An empty path yields no categories.
func LoadCategorySeed(path string) ([]CategorySeed, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category seed: %w", err)
	}
	var file categorySeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse category seed %s: %w", path, err)
	}
	for i, c := range file.Categories {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Description) == "" {
			return nil, fmt.Errorf("category seed %s: entry %d needs name and description", path, i)
		}
	}
	return file.Categories, nil
}
