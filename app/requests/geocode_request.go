package requests

// NormalizeRequest normalizes raw addresses without resolving them
type NormalizeRequest struct {
	Addresses []string `json:"addresses" binding:"required,min=1,max=1000"`
}

// GeocodeRequest resolves a single address
type GeocodeRequest struct {
	Address   string `json:"address" binding:"required"`
	SkipCache bool   `json:"skip_cache,omitempty"` // force a resolver call
}

// BatchGeocodeRequest resolves up to one batch of addresses in one call
type BatchGeocodeRequest struct {
	Addresses []string `json:"addresses" binding:"required,min=1,max=30"`
}

// CacheDeleteRequest removes cached coordinates
type CacheDeleteRequest struct {
	Addresses []string `json:"addresses" binding:"required,min=1"`
}
