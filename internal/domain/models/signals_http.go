package models

// Requests for the inspection HTTP endpoints.

type SignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}
