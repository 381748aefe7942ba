package models

// Requests for dashboard HTTP endpoints.

type TimeSeriesRequest struct {
	From string `query:"from" json:"from"`
	To   string `query:"to" json:"to"`
}

type AlertsRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=1000"`
}

// IngestResponse is returned by POST /api/events.
type IngestResponse struct {
	EventID string       `json:"eventId"`
	Alert   *AlertRecord `json:"alert,omitempty"`
}
