package models

// Page is the envelope returned by every paginated listing.
type Page[T any] struct {
	Data     []T  `json:"data"`
	Page     int  `json:"page"`
	Elements int  `json:"elements"`
	Next     bool `json:"next"`
	Previous bool `json:"previous"`
}
