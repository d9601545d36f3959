package domain

// Product is a sellable item shown in a room. Prices are integer room
// currency units.
type Product struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ImageRef  string   `json:"image_ref,omitempty"`
	UnitPrice int64    `json:"unit_price"`
	Colors    []string `json:"colors,omitempty"`
	Sizes     []string `json:"sizes,omitempty"`
}

// HasColor reports whether the color is offered for this product.
func (p *Product) HasColor(color string) bool {
	for _, c := range p.Colors {
		if c == color {
			return true
		}
	}
	return false
}

// HasSize reports whether the size is offered for this product.
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
