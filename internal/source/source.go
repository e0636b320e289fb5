// Package source implements the fetch side of a monitor: one call per poll
// cycle that returns zero or more candidate items in canonical form.
package source

import (
	"context"

	"dropwatch/internal/catalog"
)

// Source produces candidate items for one poll cycle.
//
// Fetch returns the candidates, the upstream HTTP status (0 when the request
// never completed), and an error only for failures worth surfacing to the
// cycle log. "Nothing there yet" is not an error; it is zero candidates.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (items []catalog.Item, status int, err error)
}
