package domain

import "fmt"

// LineItem is one priced, quantified row in a cart. Items for the same
// product but different variants are tracked as distinct rows, so the key
// is productID alone or "productID|variantName" when a variant applies.
type LineItem struct {
	Key         string  `json:"_id" bson:"_id"`
	ProductID   string  `json:"productID" bson:"product_id"`
	Name        string  `json:"name" bson:"name"`
	Price       float64 `json:"price" bson:"price"`
	Stock       int     `json:"stock" bson:"stock"`
	VariantName *string `json:"variantName" bson:"variant_name,omitempty"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	Subtotal    float64 `json:"subtotal" bson:"subtotal"`
}

// LineItemKey builds the composite cart key for a product/variant pair.
func LineItemKey(productID string, variantName *string) string {
	if variantName == nil || *variantName == "" {
		return productID
	}
	return fmt.Sprintf("%s|%s", productID, *variantName)
}

// WithQuantity returns a copy with the quantity set and the subtotal
// recomputed. Subtotal is never stored independently of quantity changes.
func (li LineItem) WithQuantity(quantity int) LineItem {
	li.Quantity = quantity
	li.Subtotal = float64(quantity) * li.Price
	return li
}
