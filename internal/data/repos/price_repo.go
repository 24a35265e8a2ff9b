package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorlab/internal/contracts"
)

// PriceRepository stores daily bars and serves close series. It implements
// contracts.QuoteSource, so the engine can read the reference calendar and
// forward-return inputs straight from Postgres.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository.
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// DailyCloses returns the close series for a security inside the query
// range, ordered by date ascending.
func (r *PriceRepository) DailyCloses(ctx context.Context, sec contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error) {
	q := `
		SELECT trade_date, close
		FROM market.daily_bars
		WHERE security = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date
	`

	rows, err := r.pool.Query(ctx, q, sec.String(), query.Start, query.End)
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("failed to query daily closes: %w", err)
	}
	defer rows.Close()

	var ts contracts.TimeSeries
	for rows.Next() {
		var bar contracts.Bar
		if err := rows.Scan(&bar.Date, &bar.Close); err != nil {
			return contracts.TimeSeries{}, fmt.Errorf("failed to scan row: %w", err)
		}
		ts.Dates = append(ts.Dates, contracts.Day(bar.Date))
		ts.Values = append(ts.Values, bar.Close)
	}
	if err := rows.Err(); err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("error iterating rows: %w", err)
	}

	return ts, nil
}

// DailyBars returns full OHLCV bars for a security inside the query range.
func (r *PriceRepository) DailyBars(ctx context.Context, sec contracts.Security, query contracts.DateRange) ([]contracts.Bar, error) {
	q := `
		SELECT trade_date, open, high, low, close, volume
		FROM market.daily_bars
		WHERE security = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date
	`

	rows, err := r.pool.Query(ctx, q, sec.String(), query.Start, query.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		bar := contracts.Bar{Security: sec}
		if err := rows.Scan(&bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		bar.Date = contracts.Day(bar.Date)
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return bars, nil
}

// SaveBars upserts a batch of bars in a single transaction.
func (r *PriceRepository) SaveBars(ctx context.Context, bars []contracts.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := `
		INSERT INTO market.daily_bars (
			security, trade_date, open, high, low, close, volume
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (security, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, bar := range bars {
		batch.Queue(q,
			bar.Security.String(), contracts.Day(bar.Date),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range bars {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert bar: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LatestBar returns the most recent bar stored for a security. A zero Date
// means nothing is stored yet.
func (r *PriceRepository) LatestBar(ctx context.Context, sec contracts.Security) (contracts.Bar, error) {
	q := `
		SELECT trade_date, open, high, low, close, volume
		FROM market.daily_bars
		WHERE security = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	bar := contracts.Bar{Security: sec}
	err := r.pool.QueryRow(ctx, q, sec.String()).Scan(
		&bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume,
	)
	if err == pgx.ErrNoRows {
		return contracts.Bar{Security: sec}, nil
	}
	if err != nil {
		return contracts.Bar{}, fmt.Errorf("failed to get latest bar: %w", err)
	}
	bar.Date = contracts.Day(bar.Date)

	return bar, nil
}
