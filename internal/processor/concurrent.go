package processor

import (
	"context"
	"sync"

	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/statement"
)

// minConcurrentRows is the smallest batch worth spreading over workers.
const minConcurrentRows = 16

// rowOutcome is the result of converting one cleaned row. Reason is empty when the
// row produced a transaction.
type rowOutcome struct {
	index  int
	tx     models.Transaction
	reason string
}

// rowPool converts rows on a fixed number of workers, keeping input order.
type rowPool struct {
	workers int
	logger  logging.Logger
}

// run applies convert to every row and returns the outcomes in input order. It stops
// early when ctx is cancelled and returns ctx.Err().
func (p rowPool) run(ctx context.Context, rows []statement.CleanedRow, convert func(context.Context, statement.CleanedRow) (models.Transaction, string)) ([]rowOutcome, error) {
	if p.workers <= 1 || len(rows) < minConcurrentRows {
		return p.runSequential(ctx, rows, convert)
	}
	return p.runConcurrent(ctx, rows, convert)
}

func (p rowPool) runSequential(ctx context.Context, rows []statement.CleanedRow, convert func(context.Context, statement.CleanedRow) (models.Transaction, string)) ([]rowOutcome, error) {
	out := make([]rowOutcome, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx, reason := convert(ctx, row)
		out[i] = rowOutcome{index: i, tx: tx, reason: reason}
	}
	return out, nil
}

func (p rowPool) runConcurrent(ctx context.Context, rows []statement.CleanedRow, convert func(context.Context, statement.CleanedRow) (models.Transaction, string)) ([]rowOutcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, p.workers)
	results := make(chan rowOutcome, len(rows))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				tx, reason := convert(ctx, rows[i])
				results <- rowOutcome{index: i, tx: tx, reason: reason}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range rows {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]rowOutcome, len(rows))
	received := 0
	for r := range results {
		out[r.index] = r
		received++
	}
	if err := ctx.Err(); err != nil && received < len(rows) {
		return nil, err
	}

	p.logger.Debug("Concurrent row processing completed",
		logging.Field{Key: logging.FieldCount, Value: len(rows)},
		logging.Field{Key: "workers", Value: p.workers})
	return out, nil
}
