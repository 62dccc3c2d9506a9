package usecase

import (
	"context"
	"time"

	"github.com/ribbonapp/ribbon-core/internal/metrics"
)

// valueCodecWithMetrics decorates ValueCodec with metrics instrumentation.
type valueCodecWithMetrics struct {
	next    ValueCodec
	metrics metrics.BusinessMetrics
}

// NewValueCodecWithMetrics wraps a ValueCodec with metrics recording.
func NewValueCodecWithMetrics(codec ValueCodec, m metrics.BusinessMetrics) ValueCodec {
	return &valueCodecWithMetrics{
		next:    codec,
		metrics: m,
	}
}

// EncryptValue records metrics for value encryption.
func (v *valueCodecWithMetrics) EncryptValue(ctx context.Context, key string, raw []byte) ([]byte, error) {
	start := time.Now()
	stored, err := v.next.EncryptValue(ctx, key, raw)
	v.record(ctx, "value_encrypt", start, err)
	return stored, err
}

// DecryptValue records metrics for value decryption.
func (v *valueCodecWithMetrics) DecryptValue(
	ctx context.Context,
	key string,
	stored []byte,
) (DecodeResult, error) {
	start := time.Now()
	result, err := v.next.DecryptValue(ctx, key, stored)
	v.record(ctx, "value_decrypt", start, err)
	return result, err
}

// Rotate records metrics for key rotation.
func (v *valueCodecWithMetrics) Rotate(ctx context.Context, stored map[string][]byte, persist PersistFunc) error {
	start := time.Now()
	err := v.next.Rotate(ctx, stored, persist)
	v.record(ctx, "key_rotate", start, err)
	return err
}

func (v *valueCodecWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, v.metrics, metrics.DomainCrypto, operation, start, err)
}
