package utils

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Pagination constants
const (
	// DefaultPageSize is the page size used when the client omits one
	DefaultPageSize = 20

	// MaxPageSize caps the page size a client may request
	MaxPageSize = 100
)
