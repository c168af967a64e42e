package model

// SearchPageSize caps the number of search results.
const SearchPageSize = 25

// Health is the store status reported by the health check.
type Health struct {
	Status  string `json:"status"`
	Persons int    `json:"persons"`
}

const (
	HealthOK          = "ok"
	HealthUnavailable = "unavailable"
)
