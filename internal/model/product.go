package model

// Product identifies one of the three goods traded in a game.
type Product string

const (
	ProductA Product = "A"
	ProductB Product = "B"
	ProductC Product = "C"
)

// Products lists every product in canonical order.
var Products = []Product{ProductA, ProductB, ProductC}

// PerProduct holds one value for each product.
type PerProduct[T any] struct {
	A T `json:"A" yaml:"A"`
	B T `json:"B" yaml:"B"`
	C T `json:"C" yaml:"C"`
}

// Get returns the value stored for p. Unknown products yield the zero value.
func (pp PerProduct[T]) Get(p Product) T {
	switch p {
	case ProductA:
		return pp.A
	case ProductB:
		return pp.B
	case ProductC:
		return pp.C
	}
	var zero T
	return zero
}

// Set stores v for p. Unknown products are ignored.
func (pp *PerProduct[T]) Set(p Product, v T) {
	switch p {
	case ProductA:
		pp.A = v
	case ProductB:
		pp.B = v
	case ProductC:
		pp.C = v
	}
}
