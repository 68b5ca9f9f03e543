// internal/workers/search/internal-catalog/catalog.go
package internalcatalog

import (
	"context"
	"errors"

	"directory-assistant/internal/models"
)

var ErrCatalogQueryFailed = errors.New("CATALOG_QUERY_FAILED")

// BusinessFinder answers business lookups: proximity plus text when loc is set,
// text and category otherwise.
type BusinessFinder interface {
	SearchBusinesses(ctx context.Context, text string, loc *models.Location) ([]models.Business, error)
}

// Catalog is the read side of the internal directory used by the conversation.
type Catalog interface {
	BusinessFinder
	NearbyBusinesses(ctx context.Context, loc models.Location, limit int) ([]models.Business, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error)
	SupplierPrices(ctx context.Context, term string, limit int) ([]models.SupplierPrice, error)
	Categories(ctx context.Context) ([]models.CategoryCount, error)
}

// Adapter serves business search from finder and the rest from the Postgres catalog.
type Adapter struct {
	*PostgresCatalog
	finder BusinessFinder
}

// WithFinder overrides business search, e.g. with the Elasticsearch finder.
func WithFinder(catalog *PostgresCatalog, finder BusinessFinder) *Adapter {
	return &Adapter{PostgresCatalog: catalog, finder: finder}
}

func (a *Adapter) SearchBusinesses(ctx context.Context, text string, loc *models.Location) ([]models.Business, error) {
	return a.finder.SearchBusinesses(ctx, text, loc)
}
