// Package resilience retries process launches that failed for transient
// reasons, such as fork returning EAGAIN or exec hitting ETXTBSY while a
// freshly written binary is still open.
//
//	child, err := resilience.Retry(ctx, cfg, func() (*process.Child, error) {
//	    return launch()
//	})
//
// By default an *errors.AppError is retried only when it is marked
// Retryable, and context errors are never retried.
package resilience
