package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/common/logger"
	commonmw "github.com/24HeuresINSA/OverRun-backend/common/middleware"
	"github.com/24HeuresINSA/OverRun-backend/config"
	"github.com/24HeuresINSA/OverRun-backend/controllers"
	"github.com/24HeuresINSA/OverRun-backend/database"
	awspkg "github.com/24HeuresINSA/OverRun-backend/pkg/aws"
	"github.com/24HeuresINSA/OverRun-backend/repository"
	"github.com/24HeuresINSA/OverRun-backend/routes"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

const serviceName = "overrun-backend"

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "migrate the schema before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck
	defer log.Sync()       //nolint:errcheck

	if migrateOnStart {
		if err := database.Migrate(database.DB); err != nil {
			return err
		}
	}

	stop := make(chan struct{})
	defer close(stop)

	router, authSvc := buildRouter(cmd.Context(), cfg, log, stop)
	go purgeTokens(authSvc, log, stop)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("OverRun backend started",
		zap.String("port", cfg.Port),
		zap.String("prefix", cfg.APIPrefix()),
		zap.String("payment_provider", cfg.PaymentProvider),
	)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("Server exited cleanly")
	return nil
}

// buildRouter wires repositories, services and controllers onto a gin
// engine. Optional collaborators (AWS, redis, SMTP) degrade to no-ops when
// unavailable.
func buildRouter(ctx context.Context, cfg *config.Config, log *zap.Logger, stop <-chan struct{}) (*gin.Engine, services.AuthService) {
	db := database.DB

	users := repository.NewGormUserRepository(db)
	editions := repository.NewGormEditionRepository(db)
	inscriptions := repository.NewGormInscriptionRepository(db)
	payments := repository.NewGormPaymentRepository(db)
	teams := repository.NewGormTeamRepository(db)
	certificates := repository.NewGormCertificateRepository(db)
	memberships := repository.NewGormMembershipRepository(db)

	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	if awsErr != nil {
		log.Warn("AWS config unavailable, SNS, S3 and CloudWatch disabled", zap.Error(awsErr))
	}

	var snsClient awspkg.SNSPublisher
	var metrics *awspkg.MetricsClient
	if awsErr == nil {
		if cfg.PaymentSNSTopicARN != "" {
			snsClient = awspkg.NewSNSClient(awsCfg)
		}
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	var cache services.StatsCache
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, payment stats are not cached", zap.Error(err))
		} else {
			cache = services.NewStatsCache(client, cfg.StatsCacheTTL, log)
		}
	}

	gateway, stripeGateway := newGateway(cfg, log)

	tokens := services.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTimeout, cfg.RefreshTokenTimeout)
	authSvc := services.NewAuthService(users, tokens, log)
	editionSvc := services.NewEditionService(editions, log)
	paymentSvc := services.NewPaymentService(payments, inscriptions, editions, gateway,
		snsClient, cfg.PaymentSNSTopicARN, cache, metrics, cfg.CheckoutExpiry, log)
	mailer := services.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailAddress, cfg.EmailPassword, log)
	certificateSvc := services.NewCertificateService(certificates, inscriptions, editions,
		newCertificateStore(cfg, awsCfg, awsErr, log), mailer, cfg.FrontendURL, log)
	partner := services.NewPartnerClient(services.PartnerConfig{
		SSOEndpoint:  cfg.PartnerSSOEndpoint,
		Realm:        cfg.PartnerRealm,
		ClientID:     cfg.PartnerClientID,
		ClientSecret: cfg.PartnerClientSecret,
		Endpoint:     cfg.PartnerEndpoint,
	}, log)

	paymentCtrl := &controllers.PaymentController{
		Service:        paymentSvc,
		Editions:       editionSvc,
		Logger:         log,
		HelloAssoToken: cfg.HelloAssoWebhookToken,
	}
	if stripeGateway != nil {
		paymentCtrl.Stripe = stripeGateway
	}

	handlers := &routes.Controllers{
		Auth:         controllers.NewAuthController(authSvc),
		Athletes:     controllers.NewAthleteController(services.NewAthleteService(users, log)),
		Editions:     controllers.NewEditionController(editionSvc),
		Inscriptions: controllers.NewInscriptionController(services.NewInscriptionService(inscriptions, editions, log)),
		Teams:        controllers.NewTeamController(services.NewTeamService(teams, inscriptions, editions, log)),
		Payments:     paymentCtrl,
		Certificates: &controllers.CertificateController{
			Service:  certificateSvc,
			Editions: editionSvc,
			MaxBytes: cfg.CertificateMaxBytes,
			Logger:   log,
		},
		Memberships: controllers.NewMembershipController(services.NewMembershipService(memberships, inscriptions, editions, partner, log)),
		Admins:      controllers.NewAdminController(services.NewAdminService(users, mailer, cfg.FrontendURL, cfg.InvitationTTL, log)),
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := commonmw.NewPerMinuteLimiter(cfg.RateLimitPerMinute, 20)
	go limiter.Run(stop)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(apperrors.ErrorMiddleware())
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(commonmw.RateLimitMiddleware(limiter))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(commonmw.MetricsMiddleware(metrics, serviceName))
	r.Use(commonmw.RequestTimeout(cfg.RequestTimeout))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	routes.Register(r.Group(cfg.APIPrefix()), handlers, authSvc, cfg.PaginationMaxPerPage)
	return r, authSvc
}

// newGateway returns the configured checkout gateway. The Stripe gateway is
// also returned on its own for webhook verification.
func newGateway(cfg *config.Config, log *zap.Logger) (services.CheckoutGateway, *services.StripeGateway) {
	if cfg.PaymentProvider == "stripe" {
		g := services.NewStripeGateway(services.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Currency:      cfg.StripeCurrency,
			FrontendURL:   cfg.FrontendURL,
		}, nil, log)
		return g, g
	}
	return services.NewHelloAssoGateway(services.HelloAssoConfig{
		BaseURL:          cfg.HelloAssoBaseURL,
		ClientID:         cfg.HelloAssoClientID,
		ClientSecret:     cfg.HelloAssoClientSecret,
		OrganizationSlug: cfg.HelloAssoOrgSlug,
		FrontendURL:      cfg.FrontendURL,
	}, log), nil
}

// newCertificateStore picks S3 when a bucket is configured and AWS is
// reachable, the local directory otherwise.
func newCertificateStore(cfg *config.Config, awsCfg sdkaws.Config, awsErr error, log *zap.Logger) awspkg.ObjectStore {
	if cfg.CertificateBucket != "" && awsErr == nil {
		log.Info("Storing certificates in S3", zap.String("bucket", cfg.CertificateBucket))
		return awspkg.NewS3Store(awsCfg, cfg.CertificateBucket)
	}
	store, err := services.NewDiskStore(cfg.CertificateDir)
	if err != nil {
		log.Fatal("Failed to prepare certificate directory", zap.String("dir", cfg.CertificateDir), zap.Error(err))
	}
	log.Info("Storing certificates on disk", zap.String("dir", cfg.CertificateDir))
	return store
}

// purgeTokens drops expired refresh tokens every hour until stop is closed.
func purgeTokens(auth services.AuthService, log *zap.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := auth.PurgeExpiredTokens(ctx)
			cancel()
			if err != nil {
				log.Warn("Failed to purge expired refresh tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("Purged expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}
