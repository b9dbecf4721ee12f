package domain

// CatalogDocument is the parsed supplier catalog. All three sections are
// guaranteed present by the parser; per-item fields are checked later so a
// single malformed good can be reported with its own context.
type CatalogDocument struct {
	Shop       string
	Categories []CatalogCategory
	Goods      []CatalogGood
}

// CatalogCategory is one entry of the document's categories section.
type CatalogCategory struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// CatalogGood is one entry of the document's goods section. Fields are
// pointers: the document may omit any of them, and presence is validated
// during reconciliation rather than at decode time.
type CatalogGood struct {
	ExternalID *int64            `yaml:"id"`
	CategoryID *int64            `yaml:"category"`
	Model      *string           `yaml:"model"`
	Name       *string           `yaml:"name"`
	Quantity   *int64            `yaml:"quantity"`
	Price      *int64            `yaml:"price"`
	PriceRRC   *int64            `yaml:"price_rrc"`
	Parameters map[string]string `yaml:"-"`
}

// goodFieldOrder fixes the order in which missing fields are reported.
var goodFieldOrder = []string{"id", "category", "model", "quantity", "price", "price_rrc", "name"}

// MissingField returns the first required field absent from the good, in the
// canonical reporting order, or "" when the good is complete.
func (g CatalogGood) MissingField() string {
	present := map[string]bool{
		"id":        g.ExternalID != nil,
		"category":  g.CategoryID != nil,
		"model":     g.Model != nil,
		"quantity":  g.Quantity != nil,
		"price":     g.Price != nil,
		"price_rrc": g.PriceRRC != nil,
		"name":      g.Name != nil,
	}
	for _, field := range goodFieldOrder {
		if !present[field] {
			return field
		}
	}
	return ""
}
