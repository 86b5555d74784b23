package internal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/handler"
	"github.com/quantrail/reckon/internal/middleware"
	"github.com/quantrail/reckon/internal/models"
	"github.com/quantrail/reckon/internal/service"
	"github.com/quantrail/reckon/internal/telegram"
	"github.com/quantrail/reckon/pkg/nostd"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewReckonApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewReckonApp() orz.Application {
	return &ReckonApp{}
}

var _ orz.Application = (*ReckonApp)(nil)

type AppComponents struct {
	ReconHandler *handler.ReconHandler
	AuthHandler  *handler.AuthHandler
	SetupHandler *handler.SetupHandler

	// Reconciliation pipeline services
	ReconLoop      *service.ReconLoop
	ReconService   *service.ReconService
	InsightService *service.InsightService
	AuthService    *service.AuthService

	tg *telegram.Telegram
}

type ReckonApp struct {
	components *AppComponents
	conf       *config.Config
}

func (r *ReckonApp) GetComponents() *AppComponents {
	return r.components
}

func (r *ReckonApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.ReconBatch{}, models.ReconRecord{}, models.LLMLog{}, models.AdminUser{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(echomiddleware.Gzip())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		Skipper:      echomiddleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(echomiddleware.RecoverWithConfig(echomiddleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	api := e.Group("/api")
	{
		// Public: first-run setup and login
		r.components.SetupHandler.RegisterRoutes(api)
		r.components.AuthHandler.RegisterRoutes(api)

		// Everything else requires a valid token
		protected := api.Group("", middleware.JWTAuth(middleware.JWTAuthConfig{
			AuthService: r.components.AuthService,
			Logger:      logger,
		}))
		r.components.AuthHandler.RegisterProtectedRoutes(protected.Group("/auth"))
		r.components.ReconHandler.RegisterRoutes(protected)
	}

	return nil
}

func (r *ReckonApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Reckon Reconciliation Service Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if r.conf.Inbox.Enabled {
		logger.Info("inbox loop configured, starting...",
			zap.String("dir", r.conf.Inbox.Dir))
		go func() {
			if err := components.ReconLoop.Start(context.Background()); err != nil {
				logger.Error("recon loop error", zap.Error(err))
			}
		}()
	} else {
		logger.Info("inbox loop disabled, batches run on demand via the API")
	}

	if components.tg != nil {
		components.tg.Start()
	}

	return nil
}
