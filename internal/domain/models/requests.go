package models

// Requests for dashboard HTTP endpoints.

type SettingsRequest struct {
	Symbol   string `json:"symbol" validate:"required,max=32"`
	Interval int    `json:"interval" default:"30" validate:"gte=10,lte=120"`
}

type AnalyticsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=32"`
}

// Settings is the current polling configuration as shown in the sidebar.
type Settings struct {
	Symbol   string `json:"symbol"`
	Interval int    `json:"interval"`
	Source   string `json:"source"`
}
