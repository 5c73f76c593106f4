package domain

// KeyPrefix namespaces every key this service writes to a shared store.
const KeyPrefix = "vibematch:"

// MinQueryTokens is the minimum number of words a query must have after normalization.
const MinQueryTokens = 2

// VectorConfig holds vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
}

// DefaultVectorConfig returns the defaults tuned for text-embedding-ada-002.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-ada-002",
		Dimensions:     1536,
		DistanceMetric: "cosine",
	}
}
