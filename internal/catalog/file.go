package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/toxic-toad/aquaventure/internal/domain"
	"gopkg.in/yaml.v3"
)

type fileProduct struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	Price          string            `yaml:"price"`
	ImageURL       string            `yaml:"image_url"`
	Category       string            `yaml:"category"`
	Brand          string            `yaml:"brand"`
	Specifications map[string]string `yaml:"specifications"`
	Stock          int               `yaml:"stock"`
}

type fileCatalog struct {
	Products []fileProduct `yaml:"products"`
}

// FileSource reads products from a YAML document of the form
// "products: [{id, name, price, ...}]".
type FileSource struct {
	Path string
}

func (f FileSource) GetAllProducts(_ context.Context) ([]domain.Product, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return parseYAML(data)
}

// LoadFile builds a Catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	return Load(context.Background(), FileSource{Path: path})
}

func parseYAML(data []byte) ([]domain.Product, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	products := make([]domain.Product, 0, len(doc.Products))
	for _, fp := range doc.Products {
		price, err := decimal.NewFromString(fp.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: %q has invalid price %q", ErrInvalidProduct, fp.ID, fp.Price)
		}
		products = append(products, domain.Product{
			ID:             fp.ID,
			Name:           fp.Name,
			Description:    fp.Description,
			Price:          price,
			ImageURL:       fp.ImageURL,
			Category:       fp.Category,
			Brand:          fp.Brand,
			Specifications: fp.Specifications,
			Stock:          fp.Stock,
		})
	}
	return products, nil
}
