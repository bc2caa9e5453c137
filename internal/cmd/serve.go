package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hightech/internal/config"
	"hightech/internal/server"
	"hightech/pkg/rabbitmq"

	"github.com/spf13/cobra"
)

var seedOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&seedOnStart, "seed", false, "insert the sample catalog into empty collections before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	stores, err := server.OpenStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer stores.Close()

	if seedOnStart {
		if err := seedCatalog(ctx, stores.Docs); err != nil {
			return err
		}
	}

	if stores.Events != nil {
		log.Println("Starting RabbitMQ consumer for storefront events...")
		if err := stores.Events.ConsumeEvents(rabbitmq.HandleEventMessage); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	} else {
		log.Println("rabbitmq_url is empty, events are not published")
	}

	srv := server.New(cfg, stores)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s", cfg.AppPort)
		errCh <- srv.App.Listen(cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		srv.Shutdown()
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("Shutting down server...")
	if err := srv.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
	return nil
}
