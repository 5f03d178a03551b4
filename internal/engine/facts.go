package engine

import (
	"github.com/utafrali/promo-backoffice/internal/domain"
)

// FactSource resolves a rule attribute to a value. The second return value
// reports whether the attribute is known; an unresolved attribute fails any
// rule that references it.
type FactSource func(attribute string) (any, bool)

// cartFactExtractors maps cart-level rule attributes to extractor functions.
// New cart facts are registered here (or via RegisterCartFact) without
// touching the matcher.
var cartFactExtractors = map[string]func(*domain.Cart) any{
	"currency_code":   func(c *domain.Cart) any { return c.Currency },
	"currency":        func(c *domain.Cart) any { return c.Currency },
	"subtotal_amount": func(c *domain.Cart) any { return c.SubtotalAmount },
	"item_count":      func(c *domain.Cart) any { return c.ItemCount() },
}

// itemFactExtractors maps item-level rule attributes to extractor functions.
var itemFactExtractors = map[string]func(*domain.CartItem) any{
	"variant_id":   func(i *domain.CartItem) any { return i.VariantID },
	"product_id":   func(i *domain.CartItem) any { return i.ProductID },
	"sku":          func(i *domain.CartItem) any { return i.SKU },
	"price_amount": func(i *domain.CartItem) any { return i.UnitPriceAmount },
	"quantity":     func(i *domain.CartItem) any { return i.Quantity },
}

// RegisterCartFact adds a cart-level fact extractor under the given attribute
// key. Not safe to call concurrently with evaluation; register during init.
func RegisterCartFact(attribute string, extract func(*domain.Cart) any) {
	cartFactExtractors[attribute] = extract
}

// RegisterItemFact adds an item-level fact extractor under the given
// attribute key. Not safe to call concurrently with evaluation.
func RegisterItemFact(attribute string, extract func(*domain.CartItem) any) {
	itemFactExtractors[attribute] = extract
}

// CartFacts returns a FactSource over cart-level attributes.
func CartFacts(cart *domain.Cart) FactSource {
	return func(attribute string) (any, bool) {
		extract, ok := cartFactExtractors[attribute]
		if !ok {
			return nil, false
		}
		return extract(cart), true
	}
}

// ItemFacts returns a FactSource over item-level attributes.
func ItemFacts(item *domain.CartItem) FactSource {
	return func(attribute string) (any, bool) {
		extract, ok := itemFactExtractors[attribute]
		if !ok {
			return nil, false
		}
		return extract(item), true
	}
}
