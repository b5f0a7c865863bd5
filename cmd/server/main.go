/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire ledger, workflow, and sweeper
  4. Start the sweep scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -db             SQLite database path (default: leave.db)
                  Use ":memory:" for an in-memory database
  -sweep-interval How often the accrual sweep runs (default: 1h)
  -no-sweep       Disable the background sweep (manual trigger only)
  -demo           Enable the demo scenario loader (wipes data on load)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweep scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with in-memory database, sweeping every minute
  ./server -db=":memory:" -sweep-interval=1m

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background sweep
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	sweepInterval := flag.Duration("sweep-interval", time.Hour, "accrual sweep interval")
	noSweep := flag.Bool("no-sweep", false, "disable the background accrual sweep")
	demo := flag.Bool("demo", false, "enable the demo scenario loader (wipes data on load)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the engine
	ledger := leave.NewLedger(store, store)
	workflow := leave.NewWorkflow(ledger, store, store, store, store)
	sweeper := leave.NewSweeper(ledger, store, store)

	handler := api.NewHandler(workflow, ledger, sweeper, store, store, store, store)
	if *demo {
		handler.Reset = store
		log.Println("Demo scenario loader enabled")
	}
	router := api.NewRouter(handler)

	// Background sweep
	scheduler := api.NewSweepScheduler(sweeper)
	scheduler.Interval = *sweepInterval
	scheduler.Enabled = !*noSweep
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Leave engine starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
