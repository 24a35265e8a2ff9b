package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorlab/internal/contracts"
)

// FlowRepository stores daily investor flow rows. The flow signal source
// reads net foreign buying from here.
type FlowRepository struct {
	pool *pgxpool.Pool
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(pool *pgxpool.Pool) *FlowRepository {
	return &FlowRepository{pool: pool}
}

// SaveFlows upserts a batch of flow rows in a single transaction.
func (r *FlowRepository) SaveFlows(ctx context.Context, flows []contracts.InvestorFlow) error {
	if len(flows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := `
		INSERT INTO market.investor_flows (
			security, trade_date, foreign_net, inst_net, individual_net
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (security, trade_date) DO UPDATE SET
			foreign_net = EXCLUDED.foreign_net,
			inst_net = EXCLUDED.inst_net,
			individual_net = EXCLUDED.individual_net,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, flow := range flows {
		batch.Queue(q,
			flow.Security.String(), contracts.Day(flow.Date),
			flow.ForeignNet, flow.InstNet, flow.IndividualNet,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range flows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert flow: %w", err)
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

// ForeignNetSeries returns daily net foreign buying as a time series,
// ordered by date ascending.
func (r *FlowRepository) ForeignNetSeries(ctx context.Context, sec contracts.Security, query contracts.DateRange) (contracts.TimeSeries, error) {
	q := `
		SELECT trade_date, foreign_net
		FROM market.investor_flows
		WHERE security = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date
	`

	rows, err := r.pool.Query(ctx, q, sec.String(), query.Start, query.End)
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("failed to query investor flows: %w", err)
	}
	defer rows.Close()

	var ts contracts.TimeSeries
	for rows.Next() {
		var date time.Time
		var net int64
		if err := rows.Scan(&date, &net); err != nil {
			return contracts.TimeSeries{}, fmt.Errorf("failed to scan row: %w", err)
		}
		ts.Dates = append(ts.Dates, contracts.Day(date))
		ts.Values = append(ts.Values, float64(net))
	}
	if err := rows.Err(); err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("error iterating rows: %w", err)
	}

	return ts, nil
}
