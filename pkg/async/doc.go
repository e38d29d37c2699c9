// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery,
// timeout enforcement, context cancellation, and error logging.
//
// # Key Functions
//
// SafeGo: Execute function in goroutine with safety features
//
//	async.SafeGo(ctx, logger, 30*time.Second, "stats reporting", func(ctx context.Context) error {
//		return reportStats(ctx)
//	})
//
// # Use Cases
//
// Callback delivery, filesystem watch handling, periodic stats reporting
//
// # Related Packages
//
//   - pkg/validation: uses SafeGo for callback dispatch
package async
