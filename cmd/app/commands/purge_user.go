package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	vaultUseCase "github.com/flavortown/credvault/internal/vault/usecase"
)

// RunPurgeUser removes every stored credential for a user, one service at a
// time. Nothing is decrypted: purging needs no password. Intended for
// operator hygiene, e.g. honoring a data removal request.
func RunPurgeUser(
	ctx context.Context,
	useCase vaultUseCase.VaultUseCase,
	logger *slog.Logger,
	out io.Writer,
	userID string,
) error {
	if userID == "" {
		return fmt.Errorf("user id must not be empty")
	}

	services, err := useCase.Status(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list services for user: %w", err)
	}

	if len(services) == 0 {
		fmt.Fprintf(out, "no stored credentials for user %s\n", userID)
		return nil
	}

	for _, service := range services {
		deleted, err := useCase.Logout(ctx, userID, string(service))
		if err != nil {
			return fmt.Errorf("failed to purge service %s: %w", service, err)
		}
		if deleted {
			fmt.Fprintf(out, "removed credential for service %s\n", service)
		}
	}

	logger.Info("purged user credentials",
		slog.String("user_id", userID),
		slog.Int("service_count", len(services)),
	)
	fmt.Fprintf(out, "purged %d credential(s) for user %s\n", len(services), userID)
	return nil
}
