// Package catalog maps owner tags (AIT) to the product keys (SPK) and
// repositories an operator can pick when remediating an application finding.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrIncompleteSelection = errors.New("product key and repository are required")
	ErrUnknownProduct      = errors.New("product key is not offered for this owner")
	ErrUnknownRepository   = errors.New("repository is not offered for this product key")
)

type Repository struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
}

type Product struct {
	Key          string       `yaml:"key" json:"key"`
	Name         string       `yaml:"name,omitempty" json:"name,omitempty"`
	Repositories []Repository `yaml:"repositories,omitempty" json:"repositories,omitempty"`
}

type Owner struct {
	AIT      string    `yaml:"ait" json:"ait"`
	Name     string    `yaml:"name,omitempty" json:"name,omitempty"`
	Products []Product `yaml:"products" json:"products"`
}

// Catalog is the ownership hierarchy. Fallback is offered for owners that
// have no entry of their own.
type Catalog struct {
	Owners   []Owner   `yaml:"owners" json:"owners"`
	Fallback []Product `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// Default returns the catalog used when no file is configured.
func Default() *Catalog {
	repos := make([]Repository, 0, 5)
	for i := 1; i <= 5; i++ {
		repos = append(repos, Repository{Name: fmt.Sprintf("REPO%03d", i)})
	}
	products := make([]Product, 0, 5)
	for i := 1; i <= 5; i++ {
		products = append(products, Product{
			Key:          fmt.Sprintf("SPK%03d", i),
			Name:         fmt.Sprintf("Security Product Key %d", i),
			Repositories: repos,
		})
	}
	return &Catalog{Fallback: products}
}

// Load reads a YAML catalog. An empty path or a missing file yields Default.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(c.Fallback) == 0 {
		c.Fallback = Default().Fallback
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Owners))
	for i, o := range c.Owners {
		ait := strings.TrimSpace(o.AIT)
		if ait == "" {
			return fmt.Errorf("catalog owner %d: ait is required", i)
		}
		if _, ok := seen[strings.ToUpper(ait)]; ok {
			return fmt.Errorf("catalog owner %q: duplicate ait", ait)
		}
		seen[strings.ToUpper(ait)] = struct{}{}
		for j, p := range o.Products {
			if strings.TrimSpace(p.Key) == "" {
				return fmt.Errorf("catalog owner %q product %d: key is required", ait, j)
			}
		}
	}
	return nil
}

// Options returns the products offered for an owner tag.
func (c *Catalog) Options(ait string) []Product {
	if c == nil {
		return Default().Fallback
	}
	ait = strings.TrimSpace(ait)
	for _, o := range c.Owners {
		if strings.EqualFold(strings.TrimSpace(o.AIT), ait) && len(o.Products) > 0 {
			return o.Products
		}
	}
	return c.Fallback
}

// Check verifies that productKey and repository are among the options for
// ait. Products without a repository list accept any non-empty repository.
func (c *Catalog) Check(ait, productKey, repository string) error {
	productKey = strings.TrimSpace(productKey)
	repository = strings.TrimSpace(repository)
	if productKey == "" || repository == "" {
		return ErrIncompleteSelection
	}
	for _, p := range c.Options(ait) {
		if !strings.EqualFold(p.Key, productKey) {
			continue
		}
		if len(p.Repositories) == 0 {
			return nil
		}
		for _, r := range p.Repositories {
			if strings.EqualFold(r.Name, repository) {
				return nil
			}
		}
		return fmt.Errorf("%w: %s/%s", ErrUnknownRepository, productKey, repository)
	}
	return fmt.Errorf("%w: %s", ErrUnknownProduct, productKey)
}

// RepositoryURL returns the configured URL for a repository, if any.
func (c *Catalog) RepositoryURL(ait, productKey, repository string) string {
	for _, p := range c.Options(ait) {
		if !strings.EqualFold(p.Key, productKey) {
			continue
		}
		for _, r := range p.Repositories {
			if strings.EqualFold(r.Name, repository) {
				return r.URL
			}
		}
	}
	return ""
}
