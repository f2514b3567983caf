package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"summitpass/internal/cache"
	"summitpass/internal/config"
	"summitpass/internal/handlers"
	"summitpass/internal/services"
	"summitpass/internal/store"
)

func main() {
	// 1. Load configuration from the environment.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.Init("summitpass", cfg.Verbose, false, os.Stderr)
	defer lg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the store; the schema and the global row are seeded here.
	st, err := store.OpenSQLite(cfg.DatabasePath, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// 3. Bring up the synchronized cache: full snapshot, then live feed.
	c := cache.New(st)
	broadcaster := services.NewBroadcaster()
	c.OnChange(broadcaster.PublishChange)
	if err := c.Load(ctx); err != nil {
		log.Fatalf("Failed to load cache: %v", err)
	}
	c.Run(ctx)

	// 4. Services and handlers.
	eventService := services.NewEventService(st, c)
	lotteryService := services.NewLotteryService(st, c, cfg.SpinDuration)
	authService := services.NewAuthService(cfg.AdminUsername, c)

	httpHandler := handlers.NewHTTPHandler(eventService, lotteryService, authService, c, broadcaster)

	// 5. Set up the Gin router.
	r := gin.Default()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
	httpHandler.RegisterRoutes(r)

	// 6. Run the server until interrupted.
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Infof("Server starting on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown: %v", err)
	}
}
