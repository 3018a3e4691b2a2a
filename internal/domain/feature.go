package domain

// FeatureSchemaVersion identifies the name/order contract of the feature
// vector. A scorer trained against a different version must refuse the
// vector instead of silently misreading positions.
const FeatureSchemaVersion = 2

// FeatureVector is the ordered numeric encoding of a transaction consumed
// by the scorers. It is ephemeral: built per submission, never persisted.
type FeatureVector struct {
	SchemaVersion int
	Values        []float64
}

// FeatureNames returns the schema for FeatureSchemaVersion: the fixed
// column order every model artifact is trained against.
func FeatureNames() []string {
	names := []string{
		"amt_scaled",
		"hour",
		"day_of_week",
		"is_weekend",
		"month",
		"high_risk_hour",
		"lat",
		"lon",
		"merch_lat",
		"merch_lon",
		"geo_distance",
	}
	for _, cat := range Categories() {
		names = append(names, "cat_"+string(cat))
	}
	return names
}
