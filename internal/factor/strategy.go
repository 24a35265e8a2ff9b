package factor

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// CombineInput is everything a synthesis strategy may consult: the aligned
// factor matrix plus on-demand forward returns for weight estimation.
// Aligned is indexed [factor][security]; each series matches Dates.
type CombineInput struct {
	Dates     []time.Time
	Universe  []contracts.Security
	Aligned   [][]Series
	ICHorizon int
	ICMethod  string

	// ForwardReturns yields per-security forward returns aligned to Dates.
	// Only valid during Combine.
	ForwardReturns func(ndays int) ([]Series, error)
}

// Strategy turns the aligned factor set into one composite series per
// security. Output must be len(Universe) series of len(Dates) values, in
// universe order; the engine enforces that and treats violations as fatal.
//
// Clone returns a fresh instance of the same concrete strategy so a cloned
// engine never shares strategy state with its original.
type Strategy interface {
	Name() string
	Combine(ctx context.Context, in CombineInput) ([]Series, error)
	Clone() Strategy
}

// NewStrategy resolves a strategy by its persisted name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "equal", "":
		return &EqualWeight{}, nil
	case "ic":
		return &ICWeight{}, nil
	case "icir":
		return &ICIRWeight{}, nil
	}
	return nil, fmt.Errorf("unknown synthesis strategy %q", name)
}
