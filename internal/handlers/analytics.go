package handlers

import "kabaranime.id/portal/internal/config"

// Analytics holds client instrumentation configuration surfaced to templates.
type Analytics struct {
	GA4MeasurementID string // e.g. G-XXXXXXXXXX
	Debug            bool
}

// AnalyticsFromConfig copies the analytics settings.
func AnalyticsFromConfig(c config.AnalyticsConfig) Analytics {
	return Analytics{GA4MeasurementID: c.GA4MeasurementID, Debug: c.Debug}
}

// Enabled reports whether any tracker is configured.
func (a Analytics) Enabled() bool { return a.GA4MeasurementID != "" }
