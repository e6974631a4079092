// Package async provides generic futures for running work concurrently and
// collecting the results.
//
// Future[U] holds the outcome of one asynchronous call. Await blocks until it
// completes, AwaitWithTimeout gives up after a duration, and IsComplete polls
// without blocking.
//
// The cache uses it to compute warm-up entries in parallel:
//
//	futures := make([]*async.Future[Page], 0, len(paths))
//	for _, p := range paths {
//		futures = append(futures, async.Async(ctx, p, renderPage))
//	}
//
//	pages, err := async.WaitAll(futures...)
//	if err != nil {
//		return err
//	}
//
// WaitAny returns the first future to finish, together with its index:
//
//	idx, page, err := async.WaitAny(futures...)
//
// # Errors
//
//   - ErrTimeout: AwaitWithTimeout exceeded its duration
//   - ErrNoFutures: WaitAny was called without futures
//   - ErrPanic: the function panicked; the panic value is part of the message
//
// If ctx is already cancelled when the goroutine starts, fn is not called and
// the future completes with ctx.Err().
//
// Every Async call starts exactly one goroutine. WaitAny starts one more per future.
package async
