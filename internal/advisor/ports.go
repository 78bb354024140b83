// Package advisor defines the ports for the two external collaborators:
// the weather advisor and the expense categorizer. The engine only caches
// and stores what they return; it never computes or validates their
// answers beyond normalizing into the closed domain enums.
package advisor

import (
	"context"

	"tripledger/internal/core"
)

type (
	// WeatherAdvisor estimates the weather for a location on a calendar
	// date (YYYY-MM-DD). Implementations may fail; callers resolve any
	// error to core.FallbackForecast so no date is ever left pending.
	WeatherAdvisor interface {
		Forecast(ctx context.Context, location, date string) (core.Forecast, error)
	}

	// Categorizer assigns one category from the closed set to an item
	// description. Callers map failures and out-of-set answers to
	// core.CategoryOther.
	Categorizer interface {
		Categorize(ctx context.Context, item string) (core.Category, error)
	}
)
