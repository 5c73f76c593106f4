package domain

// CatalogItem is one matchable item. Only Description is embedded; Tags are for display.
type CatalogItem struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
}
