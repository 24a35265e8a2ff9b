package contracts

import "context"

// FactorSource produces a raw predictive signal series per security.
// Implementations own their own lookback and data access; the engine only
// aligns whatever dates they return onto the reference calendar.
type FactorSource interface {
	Name() string
	Series(ctx context.Context, sec Security, query DateRange) (TimeSeries, error)
}

// QuoteSource provides daily closing prices. It supplies both the reference
// trading calendar (the dates of the reference security's closes) and the
// inputs for forward-return computation.
type QuoteSource interface {
	DailyCloses(ctx context.Context, sec Security, query DateRange) (TimeSeries, error)
}
