// Package retry supervises bounded re-invocation of asynchronous units of
// work.
//
// The retry package wraps an operation and re-runs it on failure up to a
// configured number of attempts with a fixed delay between them. Failures
// that cannot be cured by re-running, such as a defective code fragment,
// are marked with Permanent, which stops the supervisor immediately.
//
// Usage:
//
//	sup := retry.New(logger, 3, 500*time.Millisecond)
//	err := sup.Do(ctx, func() error {
//	    out = eng.Execute(ctx, req)
//	    if out.Err == nil {
//	        return nil
//	    }
//	    if out.Err.Retryable() {
//	        return out.Err
//	    }
//	    return retry.Permanent(out.Err)
//	})
package retry
