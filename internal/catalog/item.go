// Package catalog defines the canonical item shape shared by sources,
// the store and the notification sinks.
package catalog

import "strings"

// Variant is one purchasable sub-variant of an item (e.g. a shoe size)
// together with its add-to-cart link. Order is significant: sinks render
// variants in the order the source listed them.
type Variant struct {
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

// Item is the unit of dedup and notification.
//
// ID is the only required field and must be stable across polls. All other
// fields default to empty values, never to "missing", so downstream
// formatting does not have to distinguish absent from empty.
type Item struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Title    string    `json:"title,omitempty"`
	Price    string    `json:"price,omitempty"`
	Image    string    `json:"image,omitempty"`
	Variants []Variant `json:"variants,omitempty"`
}

// SafeLabel converts a variant label into a key that is legal as a store
// field name. Dots are the only character the source data contains that
// field-name rules reject ("10.5" sizes), so they map to underscores.
func SafeLabel(label string) string {
	return strings.ReplaceAll(label, ".", "_")
}

// LinkIndex returns the variant action links keyed by storage-safe label.
// Returns nil when the item has no variants.
func (it Item) LinkIndex() map[string]string {
	if len(it.Variants) == 0 {
		return nil
	}
	m := make(map[string]string, len(it.Variants))
	for _, v := range it.Variants {
		m[SafeLabel(v.Label)] = v.Link
	}
	return m
}
