package domain

// Product is a catalog entity as served by the catalog service.
type Product struct {
	ID         string           `json:"_id"`
	Name       string           `json:"name"`
	Price      float64          `json:"price"`
	Stock      int              `json:"stock"`
	CoverPhoto string           `json:"coverPhoto,omitempty"`
	Variants   []ProductVariant `json:"variants,omitempty"`
}

type ProductVariant struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// RepresentativeItem maps a detected product to a cart line item.
//
// Visual detection cannot tell variants apart, so when a product has
// variants the first one is used as representative. That approximation is
// intentional and matches what the rest of the pipeline expects.
func (p *Product) RepresentativeItem(quantity int) LineItem {
	if len(p.Variants) > 0 {
		v := p.Variants[0]
		name := v.Name
		return LineItem{
			Key:         LineItemKey(p.ID, &name),
			ProductID:   p.ID,
			Name:        p.Name + " - " + v.Name,
			Price:       v.Price,
			Stock:       v.Stock,
			VariantName: &name,
		}.WithQuantity(quantity)
	}
	return LineItem{
		Key:       LineItemKey(p.ID, nil),
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
	}.WithQuantity(quantity)
}
