package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/partio/partio-go/pkg/partio"
)

// HealthChecker checks platform liveness.
type HealthChecker interface {
	Health(ctx context.Context) (*partio.HealthStatus, error)
}

// WaitForHealthy polls the platform until it reports Healthy or maxWait
// elapses. A non-positive maxWait returns immediately.
func WaitForHealthy(ctx context.Context, hc HealthChecker, maxWait time.Duration, logger hclog.Logger) error {
	if maxWait <= 0 {
		return nil
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxWait

	op := func() error {
		status, err := hc.Health(ctx)
		if err != nil {
			return err
		}
		if !status.Healthy() {
			reported := "<empty>"
			if status != nil {
				reported = status.Status
			}
			return fmt.Errorf("platform reported status %q", reported)
		}
		return nil
	}

	notify := func(err error, next time.Duration) {
		logger.Info("waiting for platform", "error", err, "retry_in", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("platform not healthy after %s: %w", maxWait, err)
	}
	return nil
}
