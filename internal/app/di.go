// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/flavortown/credvault/internal/config"
	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
	cryptoService "github.com/flavortown/credvault/internal/crypto/service"
	"github.com/flavortown/credvault/internal/database"
	"github.com/flavortown/credvault/internal/http"
	"github.com/flavortown/credvault/internal/metrics"
	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
	vaultHTTP "github.com/flavortown/credvault/internal/vault/http"
	vaultRepository "github.com/flavortown/credvault/internal/vault/repository"
	vaultService "github.com/flavortown/credvault/internal/vault/service"
	vaultUseCase "github.com/flavortown/credvault/internal/vault/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. Components are created lazily on first access.
type Container struct {
	config *config.Config

	logger *slog.Logger
	db     *sql.DB

	txManager       database.TxManager
	recordRepo      vaultUseCase.RecordRepository
	sessionCache    *vaultService.SessionCache
	keyDeriver      cryptoService.KeyDeriver
	aeadManager     cryptoService.AEADManager
	useCase         vaultUseCase.VaultUseCase
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	recordRepoInit      sync.Once
	sessionCacheInit    sync.Once
	keyDeriverInit      sync.Once
	aeadManagerInit     sync.Once
	useCaseInit         sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// RecordRepository returns the credential record repository for the
// configured database driver.
func (c *Container) RecordRepository() (vaultUseCase.RecordRepository, error) {
	c.recordRepoInit.Do(func() {
		repo, err := c.initRecordRepository()
		if err != nil {
			c.initErrors["recordRepo"] = err
			return
		}
		c.recordRepo = repo
	})
	if storedErr, exists := c.initErrors["recordRepo"]; exists {
		return nil, storedErr
	}
	return c.recordRepo, nil
}

// SessionCache returns the in-memory session cache.
func (c *Container) SessionCache() *vaultService.SessionCache {
	c.sessionCacheInit.Do(func() {
		c.sessionCache = vaultService.NewSessionCache(c.config.SessionTTL)
	})
	return c.sessionCache
}

// KeyDeriver returns the argon2id key deriver configured from the KDF settings.
func (c *Container) KeyDeriver() cryptoService.KeyDeriver {
	c.keyDeriverInit.Do(func() {
		c.keyDeriver = cryptoService.NewArgon2Deriver(cryptoService.Argon2Params{
			Time:      c.config.KDFTime,
			MemoryKiB: c.config.KDFMemoryKiB,
			Threads:   c.config.KDFThreads,
		})
	})
	return c.keyDeriver
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the vault operation metrics recorder. A no-op
// implementation is returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = bm
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// VaultUseCase returns the vault use case, decorated with metrics recording.
func (c *Container) VaultUseCase() (vaultUseCase.VaultUseCase, error) {
	c.useCaseInit.Do(func() {
		useCase, err := c.initVaultUseCase()
		if err != nil {
			c.initErrors["vaultUseCase"] = err
			return
		}
		c.useCase = useCase
	})
	if storedErr, exists := c.initErrors["vaultUseCase"]; exists {
		return nil, storedErr
	}
	return c.useCase, nil
}

// HTTPServer returns the vault API server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources. The session cache
// is closed so cached key material is zeroed before the process exits.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.sessionCache != nil {
		c.sessionCache.Close()
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initRecordRepository selects the repository implementation for the driver.
func (c *Container) initRecordRepository() (vaultUseCase.RecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for record repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return vaultRepository.NewPostgreSQLRecordRepository(db), nil
	case "mysql":
		return vaultRepository.NewMySQLRecordRepository(db), nil
	case "sqlite":
		return vaultRepository.NewSQLiteRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initVaultUseCase assembles the vault use case with its metrics decorator.
func (c *Container) initVaultUseCase() (vaultUseCase.VaultUseCase, error) {
	repo, err := c.RecordRepository()
	if err != nil {
		return nil, err
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.AEADAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("invalid AEAD algorithm %q: %w", c.config.AEADAlgorithm, err)
	}

	useCase := vaultUseCase.NewVaultUseCase(
		repo,
		c.SessionCache(),
		c.KeyDeriver(),
		c.AEADManager(),
		txManager,
		vaultDomain.NewServiceSet(c.config.VaultServices),
		algorithm,
		c.Logger(),
	)

	return vaultUseCase.NewVaultUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initHTTPServer assembles the vault API server.
func (c *Container) initHTTPServer() (*http.Server, error) {
	useCase, err := c.VaultUseCase()
	if err != nil {
		return nil, err
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	handler := vaultHTTP.NewVaultHandler(useCase, c.Logger())

	if provider != nil {
		return http.NewServer(c.config, c.Logger(), handler, provider.MeterProvider()), nil
	}
	return http.NewServer(c.config, c.Logger(), handler, nil), nil
}
