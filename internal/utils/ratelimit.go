package utils

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

type rateLimitedWriter struct {
	ctx     context.Context
	w       io.Writer
	limiter *rate.Limiter
}

// NewRateLimitedWriter returns w unchanged when limiter is nil.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, limiter *rate.Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &rateLimitedWriter{ctx: ctx, w: w, limiter: limiter}
}

func (r *rateLimitedWriter) Write(p []byte) (int, error) {
	written := 0
	burst := r.limiter.Burst()
	for written < len(p) {
		n := min(len(p)-written, burst)
		if err := r.limiter.WaitN(r.ctx, n); err != nil {
			return written, err
		}
		m, err := r.w.Write(p[written : written+n])
		written += m
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// NewLimiter builds a shared bytes/sec limiter, or nil for unlimited.
func NewLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := int(max(bytesPerSec, 32*1024))
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}
