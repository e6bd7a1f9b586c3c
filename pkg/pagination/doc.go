// Package pagination implements the incremental pagination controller behind an
// infinite feed.
//
// A Controller accumulates fixed-size batches fetched from a BatchFetcher. At most
// one fetch is ever in flight: RequestNext is a silent no-op unless the controller
// is Idle and not exhausted, so results are always applied in strict page order.
//
// Example usage:
//
//	ctrl, err := pagination.NewController(fetcher, pagination.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//	if err := ctrl.Initialize(ctx); err != nil {
//		return err
//	}
//	// later, from a scroll trigger or a "load more" control
//	ctrl.RequestNext(ctx)
//
// State machine:
//
//	Idle --RequestNext--> Fetching --OnBatchResolved(page < terminal)--> Idle
//	Fetching --OnBatchResolved(page >= terminal or final)--> Exhausted
//	Fetching --OnBatchFailed--> Idle (cursor unchanged)
//
// Exhausted is terminal: cursor and loaded records are frozen.
package pagination
