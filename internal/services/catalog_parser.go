package services

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	domain "github.com/supplyline/api/internal/domain"
)

type yamlCatalogParser struct{}

var _ CatalogParser = (*yamlCatalogParser)(nil)

// NewCatalogParser assembles the YAML catalog decoder.
func NewCatalogParser() CatalogParser {
	return &yamlCatalogParser{}
}

// rawCatalog mirrors the wire document. Sections are pointers so a missing
// top-level key is distinguishable from a present-but-empty one.
type rawCatalog struct {
	Shop       *string        `yaml:"shop"`
	Categories *[]rawCategory `yaml:"categories"`
	Goods      *[]rawGood     `yaml:"goods"`
}

type rawCategory struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type rawGood struct {
	ExternalID *int64         `yaml:"id"`
	CategoryID *int64         `yaml:"category"`
	Model      *string        `yaml:"model"`
	Name       *string        `yaml:"name"`
	Quantity   *int64         `yaml:"quantity"`
	Price      *int64         `yaml:"price"`
	PriceRRC   *int64         `yaml:"price_rrc"`
	Parameters map[string]any `yaml:"parameters"`
}

// Parse decodes the document and checks the three required top-level keys.
// Per-item fields stay unvalidated here so the reconciler can report a single
// malformed good with its own context.
func (p *yamlCatalogParser) Parse(data []byte) (CatalogDocument, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return CatalogDocument{}, &ParseError{Err: err}
	}

	switch {
	case raw.Shop == nil:
		return CatalogDocument{}, &SchemaError{Key: "shop"}
	case raw.Categories == nil:
		return CatalogDocument{}, &SchemaError{Key: "categories"}
	case raw.Goods == nil:
		return CatalogDocument{}, &SchemaError{Key: "goods"}
	}

	doc := CatalogDocument{Shop: *raw.Shop}
	for _, c := range *raw.Categories {
		doc.Categories = append(doc.Categories, domain.CatalogCategory{ID: c.ID, Name: c.Name})
	}
	for _, g := range *raw.Goods {
		good := domain.CatalogGood{
			ExternalID: g.ExternalID,
			CategoryID: g.CategoryID,
			Model:      g.Model,
			Name:       g.Name,
			Quantity:   g.Quantity,
			Price:      g.Price,
			PriceRRC:   g.PriceRRC,
		}
		if len(g.Parameters) > 0 {
			good.Parameters = make(map[string]string, len(g.Parameters))
			for name, value := range g.Parameters {
				good.Parameters[name] = renderScalar(value)
			}
		}
		doc.Goods = append(doc.Goods, good)
	}
	return doc, nil
}

// renderScalar normalises YAML scalar values to strings for storage.
func renderScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
