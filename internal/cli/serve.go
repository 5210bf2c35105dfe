package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/api"
)

var (
	servePort   int
	serveHost   string
	serveAPIKey string
)

// serveCmd starts the API server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the FlowCanvas API server.

The server provides REST endpoints for:
  - Workflow management (create, list, get, update, delete)
  - Workflow validation
  - Knowledge base document uploads

Example:
  flowcanvas serve --port 8000
  flowcanvas serve --host 0.0.0.0 --port 3000 --api-key secret`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "", "host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "API key for authentication (optional)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveAPIKey != "" {
		cfg.Server.APIKey = serveAPIKey
	}

	store, err := openStorage(context.Background(), cfg)
	if err != nil {
		exitError("%v", err)
	}

	addr := cfg.Server.Addr()
	server := api.New(&api.Config{
		Addr:          addr,
		APIKey:        cfg.Server.APIKey,
		MaxUploadSize: cfg.Uploads.MaxSize,
		CORSOrigins:   cfg.Server.CORSOrigins,
	}, store, log)

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		fmt.Println("\nShutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("FlowCanvas API server starting on http://%s (storage: %s)\n", addr, cfg.Storage.Driver)
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  GET    /health                        - Health check")
	fmt.Println("  GET    /api/workflows                 - List workflows")
	fmt.Println("  POST   /api/workflows                 - Create workflow")
	fmt.Println("  GET    /api/workflows/{id}            - Get workflow")
	fmt.Println("  PUT    /api/workflows/{id}            - Update workflow")
	fmt.Println("  DELETE /api/workflows/{id}            - Delete workflow")
	fmt.Println("  POST   /api/workflows/{id}/validate   - Validate workflow")
	fmt.Println("  POST   /api/documents/upload          - Upload document")
	fmt.Println("  GET    /api/documents                 - List documents")
	fmt.Println()
	if cfg.Server.APIKey != "" {
		fmt.Println("Authentication: Required (use Authorization: Bearer <key> or X-API-Key header)")
	} else {
		fmt.Println("Authentication: Disabled (use --api-key to enable)")
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitError("server error: %v", err)
	}
}
