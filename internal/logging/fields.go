package logging

// Shared attribute keys. Components use these instead of ad-hoc strings so
// records can be correlated across the engine, the API server, and the
// lookup journal.
const (
	FieldComponent = "component"

	FieldCorrelationID = "correlation_id"

	FieldStorefrontID = "storefront_id"

	FieldCatalogID = "catalog_id"

	FieldQuery = "query"

	FieldOutcome = "outcome"

	FieldStrategy = "strategy"

	FieldStatus = "status"
)
