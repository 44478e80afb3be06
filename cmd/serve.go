package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notifun/wa-console/console"
	coreconfig "github.com/notifun/wa-console/core/config"
	coreDB "github.com/notifun/wa-console/core/database"
	"github.com/notifun/wa-console/infrastructure/eventfeed"
	"github.com/notifun/wa-console/infrastructure/journal"
	"github.com/notifun/wa-console/infrastructure/upstream"
	"github.com/notifun/wa-console/infrastructure/valkey"
	"github.com/notifun/wa-console/pkg/utils"
	"github.com/notifun/wa-console/ui/rest"
	"github.com/notifun/wa-console/ui/rest/middleware"
	"github.com/notifun/wa-console/ui/websocket"
	"github.com/notifun/wa-console/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the console API and UI event stream over http",
	Run:   serveConsole,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveConsole(_ *cobra.Command, _ []string) {
	cfg := coreconfig.Global

	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[DB] Failed to open database: %v", err)
	}

	eventJournal, err := journal.New(db)
	if err != nil {
		logrus.Fatalf("[DB] Failed to prepare event journal: %v", err)
	}

	transport := eventfeed.NewTransport(eventfeed.Config{
		URL:               cfg.Feed.URL,
		ReconnectAttempts: cfg.Feed.ReconnectAttempts,
		ReconnectDelay:    cfg.Feed.ReconnectDelay,
	})

	manager := console.NewManager(transport, cfg.UI.ModalDismissDelay)

	api := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	channelUsecase := usecase.NewChannelService(api, manager.Registry, manager.Syncer)

	manager.Reconciler.OnEvent = func(event, channelID string, payload json.RawMessage) {
		eventJournal.Record(event, channelID, payload)
	}
	manager.Reconciler.OnOpenRefresh = func(channelID string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Upstream.Timeout)
			defer cancel()
			if _, err := channelUsecase.FetchChannels(ctx); err != nil {
				logrus.Errorf("[CONSOLE] Channel list refresh after %s opened failed: %v", channelID, err)
			}
		}()
	}

	serverID := utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	var vkClient *valkey.Client
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Warnf("[VALKEY] Disabled, connection failed: %v", err)
			vkClient = nil
		} else {
			websocket.SetValkeyClient(vkClient, serverID)
		}
	}

	// Registry changes fan out to every connected UI client.
	manager.Registry.OnChange(func(change console.Change) {
		websocket.Broadcast <- websocket.BroadcastMessage{
			Code:     change.Code,
			Result:   change.Payload,
			SenderID: serverID,
		}
	})
	go websocket.RunHub()

	fiberConfig := fiber.Config{
		Network:               "tcp",
		AppName:               "WA Console",
		DisableStartupMessage: false,
		ServerHeader:          "Hidden",
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.EnableTrustedProxyCheck = true
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())

	origins := strings.Join(cfg.App.CorsAllowedOrigins, ", ")
	if !strings.Contains(origins, cfg.App.BaseUrl) {
		origins += ", " + cfg.App.BaseUrl
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if cfg.App.Debug {
		app.Use(logger.New())
	}

	if len(cfg.App.BasicAuth) > 0 {
		account := make(map[string]string)
		for _, basicAuth := range cfg.App.BasicAuth {
			ba := strings.Split(basicAuth, ":")
			if len(ba) != 2 {
				logrus.Fatalln("Basic auth is not valid, please use the format <user>:<secret>")
			}
			account[ba[0]] = ba[1]
		}
		app.Use(cfg.App.BasePath+"/api", basicauth.New(basicauth.Config{
			Users: account,
			Next: func(c *fiber.Ctx) bool {
				// Allow CORS preflight without credentials.
				return c.Method() == fiber.MethodOptions
			},
		}))
	} else {
		logrus.Warn("[APP] APP_BASIC_AUTH is not set, API is unauthenticated")
	}

	root := app.Group(cfg.App.BasePath)

	rest.InitRestChannel(root, channelUsecase)
	rest.InitRestEvents(root, eventJournal)
	rest.InitRestHealth(root, transport, cfg.App.Version)

	websocket.RegisterRoutes(root, channelUsecase)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[APP] Termination signal received, shutting down gracefully...")
		manager.Stop()
		if vkClient != nil {
			vkClient.Close()
		}
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[APP] Error during Fiber shutdown: %v", err)
		}
	}()

	// Connect the feed, then seed the registry from the authoritative list.
	// The first connect event performs the bulk subscribe.
	manager.Start()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Upstream.Timeout)
		defer cancel()
		if _, err := channelUsecase.FetchChannels(ctx); err != nil {
			logrus.Warnf("[CONSOLE] Initial channel fetch failed: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}
