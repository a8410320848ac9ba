package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-battle/internal/catalog"
	"github.com/pixil98/go-battle/internal/storage"
	"github.com/pixil98/go-errors"
)

// StorageConfig points at the JSON asset directories the catalog is built from.
type StorageConfig struct {
	Creatures    AssetConfig[*catalog.Creature] `json:"creatures"`
	Moves        AssetConfig[*catalog.Move]     `json:"moves"`
	Items        AssetConfig[*catalog.Item]     `json:"items"`
	Parties      AssetConfig[*catalog.Party]    `json:"parties"`
	DefaultParty string                         `json:"default_party,omitempty"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Creatures.Validate("creatures"))
	el.Add(c.Moves.Validate("moves"))
	el.Add(c.Items.Validate("items"))
	el.Add(c.Parties.Validate("parties"))
	return el.Err()
}

func (c *StorageConfig) BuildCatalog() (*catalog.Catalog, error) {
	creatures, err := c.Creatures.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating creature store: %w", err)
	}
	moves, err := c.Moves.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating move store: %w", err)
	}
	items, err := c.Items.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating item store: %w", err)
	}
	parties, err := c.Parties.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating party store: %w", err)
	}

	var opts []catalog.CatalogOpt
	if c.DefaultParty != "" {
		opts = append(opts, catalog.WithDefaultParty(c.DefaultParty))
	}

	return catalog.NewCatalog(creatures, moves, items, parties, opts...)
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("storage: %s: path is required", name)
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("storage: %s: invalid path %q: %w", name, c.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: %s: %q is not a directory", name, c.Path)
	}
	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](os.DirFS(c.Path), ".")
}
