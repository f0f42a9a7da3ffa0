package health

import (
	"context"
	"log"
	"sync"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// ExportService is the health service name reported for the export queue.
const ExportService = "replay-export"

// FailedCounter reports items awaiting manual sync. *export.Queue satisfies it.
type FailedCounter interface {
	GetFailedCount() int
}

// #region reporter

// Reporter publishes gRPC health for the process ("") and the export queue.
// The export service is NOT_SERVING while any item awaits manual sync.
type Reporter struct {
	server *health.Server
	source FailedCounter

	mu   sync.Mutex
	last grpc_health_v1.HealthCheckResponse_ServingStatus
}

// NewReporter creates a reporter with both services SERVING.
func NewReporter(source FailedCounter) *Reporter {
	s := health.NewServer()
	s.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.SetServingStatus(ExportService, grpc_health_v1.HealthCheckResponse_SERVING)
	return &Reporter{
		server: s,
		source: source,
		last:   grpc_health_v1.HealthCheckResponse_SERVING,
	}
}

// Register attaches the health service to a gRPC server.
func (r *Reporter) Register(g *gogrpc.Server) {
	grpc_health_v1.RegisterHealthServer(g, r.server)
}

// Update reads the failed count once and publishes the export status.
func (r *Reporter) Update() grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if n := r.source.GetFailedCount(); n > 0 {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	r.mu.Lock()
	if status != r.last {
		log.Printf("[HEALTH] %s -> %s", ExportService, status)
		r.last = status
	}
	r.mu.Unlock()
	r.server.SetServingStatus(ExportService, status)
	return status
}

// Run updates on every tick until ctx ends, then marks everything NOT_SERVING.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	r.Update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Update()
		}
	}
}

// #endregion reporter
