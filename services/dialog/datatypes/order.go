// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// =============================================================================
// Order Types
// =============================================================================

// ParsedOrderItem is one dish extracted from an utterance and matched against
// a restaurant's menu.
//
// Extras and Exclusions hold canonical vocabulary codes where a match was
// found; an exclusion the vocabulary does not know is kept as the raw token
// so the kitchen-facing caller still sees it.
type ParsedOrderItem struct {
	// Name is the canonical menu name of the matched dish.
	Name string `json:"name"`

	// MenuItemID is the id of the matched MenuItem row.
	MenuItemID string `json:"menu_item_id"`

	// Size is the resolved canonical size code, or "" for unsized dishes.
	Size string `json:"size,omitempty"`

	// Quantity is always >= 1.
	Quantity int `json:"quantity"`

	// UnitPrice is the per-unit price, size-adjusted when a size was resolved.
	UnitPrice float64 `json:"unit_price"`

	Extras     []string `json:"extras,omitempty"`
	Exclusions []string `json:"exclusions,omitempty"`
}

// LineTotal returns UnitPrice × Quantity.
func (p ParsedOrderItem) LineTotal() float64 {
	return p.UnitPrice * float64(p.Quantity)
}

// Order is a set of parsed items against a single restaurant. The total is
// always recomputed from the items — it is never stored, so it can never go
// stale.
type Order struct {
	ID           string            `json:"id"`
	RestaurantID string            `json:"restaurant_id"`
	Items        []ParsedOrderItem `json:"items"`
}

// Total returns the sum of line totals over all items.
func (o *Order) Total() float64 {
	if o == nil {
		return 0
	}
	var sum float64
	for _, it := range o.Items {
		sum += it.LineTotal()
	}
	return sum
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	out := *o
	out.Items = make([]ParsedOrderItem, len(o.Items))
	copy(out.Items, o.Items)
	for i := range out.Items {
		out.Items[i].Extras = append([]string(nil), o.Items[i].Extras...)
		out.Items[i].Exclusions = append([]string(nil), o.Items[i].Exclusions...)
	}
	return &out
}

// Cart holds the orders a session has committed. A pending order only moves
// here after an explicit confirm_order.
type Cart struct {
	Orders []*Order `json:"orders"`
}

// Total returns the sum over all committed orders.
func (c *Cart) Total() float64 {
	if c == nil {
		return 0
	}
	var sum float64
	for _, o := range c.Orders {
		sum += o.Total()
	}
	return sum
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := &Cart{Orders: make([]*Order, len(c.Orders))}
	for i, o := range c.Orders {
		out.Orders[i] = o.Clone()
	}
	return out
}
