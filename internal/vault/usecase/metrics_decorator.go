package usecase

import (
	"context"
	"time"

	"github.com/flavortown/credvault/internal/metrics"
	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
)

// vaultUseCaseWithMetrics decorates VaultUseCase with metrics instrumentation.
type vaultUseCaseWithMetrics struct {
	next    VaultUseCase
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a VaultUseCase with metrics recording.
func NewVaultUseCaseWithMetrics(useCase VaultUseCase, m metrics.BusinessMetrics) VaultUseCase {
	return &vaultUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Login records metrics for login operations.
func (v *vaultUseCaseWithMetrics) Login(ctx context.Context, userID, service, password, secret string) error {
	start := time.Now()
	err := v.next.Login(ctx, userID, service, password, secret)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "login", status)
	v.metrics.RecordDuration(ctx, "login", time.Since(start), status)

	return err
}

// Fetch records metrics for fetch operations, including whether the cached
// key served the request.
func (v *vaultUseCaseWithMetrics) Fetch(ctx context.Context, userID, service, password string) (*FetchResult, error) {
	start := time.Now()
	result, err := v.next.Fetch(ctx, userID, service, password)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "fetch", status)
	v.metrics.RecordDuration(ctx, "fetch", time.Since(start), status)
	if result != nil {
		v.metrics.RecordCacheLookup(ctx, result.CacheHit)
	}

	return result, err
}

// Logout records metrics for logout operations.
func (v *vaultUseCaseWithMetrics) Logout(ctx context.Context, userID, service string) (bool, error) {
	start := time.Now()
	deleted, err := v.next.Logout(ctx, userID, service)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "logout", status)
	v.metrics.RecordDuration(ctx, "logout", time.Since(start), status)

	return deleted, err
}

// Status records metrics for status operations.
func (v *vaultUseCaseWithMetrics) Status(ctx context.Context, userID string) ([]vaultDomain.Service, error) {
	start := time.Now()
	services, err := v.next.Status(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "status", status)
	v.metrics.RecordDuration(ctx, "status", time.Since(start), status)

	return services, err
}
