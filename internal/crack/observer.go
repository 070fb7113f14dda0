package crack

import "context"

// Observer receives progress events from a Breaker. Events from column and
// candidate work arrive from worker goroutines in no particular order, so
// implementations must be safe for concurrent use. Observers only watch: they
// cannot change the outcome.
type Observer interface {
	LengthsEstimated(ctx context.Context, candidates []KeyLengthCandidate)
	ColumnSolved(ctx context.Context, keyLength, column int, kb KeyByte)
	CandidateScored(ctx context.Context, r Result)
	BestSelected(ctx context.Context, r Result)
}

type nopObserver struct{}

func (nopObserver) LengthsEstimated(context.Context, []KeyLengthCandidate) {}
func (nopObserver) ColumnSolved(context.Context, int, int, KeyByte)       {}
func (nopObserver) CandidateScored(context.Context, Result)               {}
func (nopObserver) BestSelected(context.Context, Result)                  {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) LengthsEstimated(ctx context.Context, candidates []KeyLengthCandidate) {
	for _, obs := range o {
		obs.LengthsEstimated(ctx, candidates)
	}
}

func (o Observers) ColumnSolved(ctx context.Context, keyLength, column int, kb KeyByte) {
	for _, obs := range o {
		obs.ColumnSolved(ctx, keyLength, column, kb)
	}
}

func (o Observers) CandidateScored(ctx context.Context, r Result) {
	for _, obs := range o {
		obs.CandidateScored(ctx, r)
	}
}

func (o Observers) BestSelected(ctx context.Context, r Result) {
	for _, obs := range o {
		obs.BestSelected(ctx, r)
	}
}
