// Package retry repeats operations that fail with transient errors.
//
// It is used below the sampling layer only: a single Flickr REST call or a
// single image GET may be repeated on network and 5xx failures. The picker's
// own attempt budget is separate and is not implemented here.
//
// Basic usage:
//
//	err := retry.Do(ctx, func() error {
//		return client.Call(ctx, method, params, &out)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		RetryIf:     retry.DefaultRetryIf,
//		Logger:      log,
//	})
//
// Wait is also exported so that fixed delays elsewhere can honour context
// cancellation in the same way.
package retry
