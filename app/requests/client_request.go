package requests

// RefreshRequest starts a resolution cycle. URL is optional, the configured
// source is used when empty.
type RefreshRequest struct {
	URL string `json:"url,omitempty" binding:"omitempty,url"`
}

// SetSourceRequest replaces the record source and reloads
type SetSourceRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// ClientListQuery query string of GET /v1/clients
type ClientListQuery struct {
	Q       string `form:"q"`
	Located *bool  `form:"located"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=10000"`
}
