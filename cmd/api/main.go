package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/cooperativa-api/docs"
	"github.com/jhoicas/cooperativa-api/internal/application/billing"
	infrapdf "github.com/jhoicas/cooperativa-api/internal/infrastructure/pdf"
	"github.com/jhoicas/cooperativa-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/cooperativa-api/internal/interfaces/http"
	"github.com/jhoicas/cooperativa-api/pkg/config"
	"github.com/jhoicas/cooperativa-api/pkg/logger"
)

// @title                       Cooperativa Billing API
// @version                     1.0
// @description                 Motor de periodos de facturación y generación de facturas para cooperativas de servicios.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
// @description                 Formato: Bearer <token>
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.Billing.RunMigrations {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.Billing.GenerationWorkers)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Lecturas fuera de transacción sobre el pool; escrituras vía txRunner.
	repos := postgres.NewBillingRepos(pool)
	txRunner := postgres.NewTxRunner(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	personRepo := postgres.NewPersonRepository(pool)

	conceptUC := billing.NewConceptUseCase(txRunner, repos)
	periodUC := billing.NewPeriodUseCase(txRunner, repos)
	appliedUC := billing.NewAppliedConceptUseCase(txRunner, repos, accountRepo, log)
	invoiceUC := billing.NewInvoiceUseCase(txRunner, repos, accountRepo, personRepo, billing.GeneratorConfig{
		Workers:        cfg.Billing.GenerationWorkers,
		DefaultDueDays: cfg.Billing.DefaultDueDays,
	}, log)

	pdfGenerator := infrapdf.NewMarotoPDFGenerator(cfg.Billing.Issuer)
	documentUC := billing.NewInvoiceDocumentUseCase(repos, accountRepo, personRepo, pdfGenerator)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // la generación masiva de un periodo puede tardar
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Cooperativa Billing API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ConceptUC:  conceptUC,
		PeriodUC:   periodUC,
		AppliedUC:  appliedUC,
		InvoiceUC:  invoiceUC,
		DocumentUC: documentUC,
		JWTSecret:  cfg.JWT.Secret,
		Logger:     log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
