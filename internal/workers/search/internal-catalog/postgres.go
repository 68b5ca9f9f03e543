// internal/workers/search/internal-catalog/postgres.go
package internalcatalog

import (
	"context"
	"database/sql"
	"fmt"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/textnorm"
	"directory-assistant/internal/models"
)

// fold lower-cases a column and strips the Spanish accents so it compares equal
// to normalized query text.
func fold(col string) string {
	return "translate(lower(" + col + "), 'áéíóúüñàèìòù', 'aeiouunaeiou')"
}

var (
	businessColumns = `b.id, b.name, b.category, COALESCE(b.address, ''), COALESCE(b.phone, ''),
		COALESCE(b.whatsapp, ''), b.rating,
		ST_Y(b.location::geometry), ST_X(b.location::geometry)`

	textMatch = "(" + fold("b.name") + " LIKE '%' || lower($1) || '%' OR " +
		fold("b.category") + " LIKE '%' || lower($1) || '%' OR " +
		"lower($1) LIKE '%' || " + fold("b.category") + " || '%')"

	nearbyTextSQL = `SELECT ` + businessColumns + `,
		ST_Distance(b.location, ST_SetSRID(ST_MakePoint($3, $2), 4326)::geography) AS distance,
		b.updated_at
		FROM businesses b
		WHERE b.is_active = true AND b.location IS NOT NULL AND ` + textMatch + `
		AND ST_DWithin(b.location, ST_SetSRID(ST_MakePoint($3, $2), 4326)::geography, $4)
		ORDER BY distance
		LIMIT $5`

	textSQL = `SELECT ` + businessColumns + `, NULL::double precision AS distance, b.updated_at
		FROM businesses b
		WHERE b.is_active = true AND ` + textMatch + `
		ORDER BY b.rating DESC NULLS LAST, b.name
		LIMIT $2`

	nearbySQL = `SELECT ` + businessColumns + `,
		ST_Distance(b.location, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography) AS distance,
		b.updated_at
		FROM businesses b
		WHERE b.is_active = true AND b.location IS NOT NULL
		AND ST_DWithin(b.location, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4`

	productsSQL = `SELECT p.id, p.name, COALESCE(p.category, ''), p.price, COALESCE(p.unit, ''), COALESCE(b.name, '')
		FROM products p
		LEFT JOIN businesses b ON b.id = p.business_id
		WHERE p.is_active = true AND (` + fold("p.name") + ` LIKE '%' || lower($1) || '%'
			OR ` + fold("COALESCE(p.description, '')") + ` LIKE '%' || lower($1) || '%')
		ORDER BY p.price, p.name
		LIMIT $2`

	supplierPricesSQL = `SELECT s.name, COALESCE(s.phone, ''), s.rating, p.key, p.value::numeric AS price
		FROM suppliers s, jsonb_each_text(s.products) AS p(key, value)
		WHERE ` + fold("p.key") + ` LIKE '%' || lower($1) || '%'
		AND p.value ~ '^[0-9]+(\.[0-9]+)?$'
		ORDER BY price, s.name
		LIMIT $2`

	categoriesSQL = `SELECT category, COUNT(*)
		FROM businesses
		WHERE is_active = true AND category IS NOT NULL AND category <> ''
		GROUP BY category
		ORDER BY COUNT(*) DESC, category`
)

// PostgresCatalog reads the directory tables. Proximity lookups use PostGIS.
type PostgresCatalog struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresCatalog(config *Config, db *sql.DB, log logger.Logger) *PostgresCatalog {
	return &PostgresCatalog{
		config: config,
		db:     db,
		logger: log.With(map[string]interface{}{"catalogBackend": "postgres"}),
	}
}

func (c *PostgresCatalog) SearchBusinesses(ctx context.Context, text string, loc *models.Location) ([]models.Business, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if loc != nil {
		rows, err = c.db.QueryContext(ctx, nearbyTextSQL,
			text, loc.Latitude, loc.Longitude, c.config.radius(loc.RadiusMeters), c.config.MaxResults)
	} else {
		rows, err = c.db.QueryContext(ctx, textSQL, text, c.config.MaxResults)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %v", ErrCatalogQueryFailed, err)
	}

	businesses, err := scanBusinesses(rows)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("internal businesses found", map[string]interface{}{
		"query":       text,
		"located":     loc != nil,
		"resultCount": len(businesses),
	})
	return businesses, nil
}

func (c *PostgresCatalog) NearbyBusinesses(ctx context.Context, loc models.Location, limit int) ([]models.Business, error) {
	rows, err := c.db.QueryContext(ctx, nearbySQL,
		loc.Latitude, loc.Longitude, c.config.radius(loc.RadiusMeters), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %v", ErrCatalogQueryFailed, err)
	}
	return scanBusinesses(rows)
}

// SearchProducts matches term against product names and descriptions. The
// columns are folded in SQL, so the term is folded here to compare equal.
func (c *PostgresCatalog) SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error) {
	rows, err := c.db.QueryContext(ctx, productsSQL, textnorm.Fold(term), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %v", ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Unit, &p.SupplierName); err != nil {
			return nil, fmt.Errorf("%w: scan product: %v", ErrCatalogQueryFailed, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	return products, nil
}

func (c *PostgresCatalog) SupplierPrices(ctx context.Context, term string, limit int) ([]models.SupplierPrice, error) {
	rows, err := c.db.QueryContext(ctx, supplierPricesSQL, textnorm.Fold(term), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %v", ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	var prices []models.SupplierPrice
	for rows.Next() {
		var (
			sp     models.SupplierPrice
			rating sql.NullFloat64
		)
		if err := rows.Scan(&sp.SupplierName, &sp.Phone, &rating, &sp.ProductName, &sp.Price); err != nil {
			return nil, fmt.Errorf("%w: scan supplier price: %v", ErrCatalogQueryFailed, err)
		}
		sp.Rating = floatPtr(rating)
		prices = append(prices, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	return prices, nil
}

func (c *PostgresCatalog) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	rows, err := c.db.QueryContext(ctx, categoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %v", ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	var counts []models.CategoryCount
	for rows.Next() {
		var cc models.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("%w: scan category: %v", ErrCatalogQueryFailed, err)
		}
		counts = append(counts, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	return counts, nil
}

func scanBusinesses(rows *sql.Rows) ([]models.Business, error) {
	defer rows.Close()

	var businesses []models.Business
	for rows.Next() {
		var (
			b                          models.Business
			rating, lat, lon, distance sql.NullFloat64
		)
		if err := rows.Scan(
			&b.ID, &b.Name, &b.Category, &b.Address, &b.Phone, &b.WhatsApp,
			&rating, &lat, &lon, &distance, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan business: %v", ErrCatalogQueryFailed, err)
		}
		b.Rating = floatPtr(rating)
		b.Latitude = floatPtr(lat)
		b.Longitude = floatPtr(lon)
		b.DistanceMeters = floatPtr(distance)
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	return businesses, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
