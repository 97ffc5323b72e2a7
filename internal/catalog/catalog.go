package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"luxury_hotel/internal/domain"
)

//go:embed rooms.yaml
var defaultRooms []byte

type file struct {
	Rooms []domain.RoomType `yaml:"rooms"`
}

// Load builds the room catalog from the YAML file at path, or from the
// built-in table when path is empty.
func Load(path string) (*domain.Catalog, error) {
	data := defaultRooms
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*domain.Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return domain.NewCatalog(f.Rooms)
}

// Default is the built-in catalog. It panics only if the embedded file is broken.
func Default() *domain.Catalog {
	c, err := Parse(defaultRooms)
	if err != nil {
		panic(err)
	}
	return c
}
