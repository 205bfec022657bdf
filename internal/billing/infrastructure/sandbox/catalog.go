package sandbox

import (
	_ "embed"
	"fmt"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/infrastructure/security"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Products []domain.Product `yaml:"products"`
}

// DefaultCatalog returns the built-in sandbox catalog.
func DefaultCatalog() []domain.Product {
	products, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("sandbox: invalid built-in catalog: %v", err))
	}
	return products
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) ([]domain.Product, error) {
	data, err := security.ReadConfigFile(path, ".yaml", ".yml")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog and checks that product ids and offer
// tokens are present and unique.
func ParseCatalog(data []byte) ([]domain.Product, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool)
	tokens := make(map[string]bool)
	for _, p := range file.Products {
		if p.ProductID == "" {
			return nil, fmt.Errorf("catalog product without product_id")
		}
		if seen[p.ProductID] {
			return nil, fmt.Errorf("duplicate product %q in catalog", p.ProductID)
		}
		seen[p.ProductID] = true
		for _, o := range p.Offers {
			if o.OfferToken == "" {
				return nil, fmt.Errorf("offer of %q has no offer_token", p.ProductID)
			}
			if tokens[o.OfferToken] {
				return nil, fmt.Errorf("duplicate offer_token %q in catalog", o.OfferToken)
			}
			tokens[o.OfferToken] = true
		}
	}
	return file.Products, nil
}
