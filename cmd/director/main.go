package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	gogrpc "google.golang.org/grpc"

	"github.com/danielpatrickdp/mission-director/internal/api"
	"github.com/danielpatrickdp/mission-director/internal/config"
	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/health"
	"github.com/danielpatrickdp/mission-director/internal/scoring"
	"github.com/danielpatrickdp/mission-director/internal/session"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

// #region main
func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	journal, err := export.OpenJournal(cfg.JournalDir)
	if err != nil {
		log.Fatalf("failed to open export journal: %v", err)
	}

	var sender export.Sender = offlineSender{}
	if cfg.ExportEndpoint != "" {
		sender = export.NewHTTPSender(cfg.ExportEndpoint, cfg.ExportToken, nil)
	} else {
		log.Println("[EXPORT] MISSION_EXPORT_ENDPOINT not set; completed missions go to manual sync")
	}
	queue := export.NewQueue(sender, journal, cfg.ExportConfig(), export.WithRecorder(session.AttemptSink{Store: st}))
	if n, err := queue.LoadPersistedOnStartup(); err != nil {
		log.Printf("[EXPORT] load persisted: %v", err)
	} else if n > 0 {
		log.Printf("[EXPORT] %d items awaiting manual sync (POST /exports/retry)", n)
	}

	director := session.NewDirector(session.Options{
		Store:       st,
		Queue:       queue,
		Scorer:      scoring.NewScorer(cfg.TierTable()),
		Modifiers:   cfg.Modifiers,
		HeatCap:     cfg.HeatCap,
		MaxDuration: cfg.MaxDuration,
		Tension:     cfg.TensionConfig(),
		AlertDecay:  cfg.AlertDecay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(queue, st, director).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[API] serve: %v", err)
		}
	}()

	reporter := health.NewReporter(queue)
	grpcSrv := gogrpc.NewServer()
	reporter.Register(grpcSrv)
	if lis, err := net.Listen("tcp", cfg.GRPCAddr); err != nil {
		log.Printf("[HEALTH] listen %s: %v", cfg.GRPCAddr, err)
	} else {
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Printf("[HEALTH] serve: %v", err)
			}
		}()
	}
	go reporter.Run(ctx, 5*time.Second)

	fmt.Println("Mission director ready.")
	fmt.Printf("  DB: %s | Journal: %s | API: %s | Health: %s\n", cfg.DBPath, cfg.JournalDir, cfg.HTTPAddr, cfg.GRPCAddr)
	fmt.Println("Type 'help' for commands (or 'quit' to exit):")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	r := &repl{director: director, queue: queue}
loop:
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if !r.handle(strings.Fields(line)) {
				break loop
			}
		}
	}

	shutdown(httpSrv, grpcSrv, queue)
}
// #endregion main

// #region shutdown
func shutdown(httpSrv *http.Server, grpcSrv *gogrpc.Server, queue *export.Queue) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("[API] shutdown: %v", err)
	}
	grpcSrv.GracefulStop()
	if err := queue.Close(ctx); err != nil {
		log.Printf("[EXPORT] close: %v", err)
	}
	log.Printf("[EXPORT] shutdown with %d items awaiting manual sync", queue.GetFailedCount())
}
// #endregion shutdown

// #region repl
type repl struct {
	director *session.Director
	queue    *export.Queue
	current  *session.Session
	last     *session.Report
}

func (r *repl) handle(args []string) bool {
	if len(args) == 0 {
		return true
	}
	var err error
	switch args[0] {
	case "quit", "exit":
		return false
	case "help":
		printHelp()
	case "start":
		err = r.start(args[1:])
	case "act":
		err = r.activate(args[1:])
	case "action":
		err = r.action(args[1:])
	case "pause":
		err = r.withSession(func(s *session.Session) error { return s.Pause() })
	case "resume":
		err = r.withSession(func(s *session.Session) error { return s.Resume() })
	case "alert":
		err = r.alert(args[1:])
	case "decay":
		err = r.decay(args[1:])
	case "tension":
		err = r.tension()
	case "complete":
		err = r.complete(args[1:])
	case "status":
		r.status()
	case "failed":
		fmt.Printf("awaiting manual sync: %d\n", r.queue.GetFailedCount())
	case "retry":
		fmt.Printf("re-enqueued %d items\n", r.queue.RetryFailedItems())
	case "remix":
		err = r.remix(args[1:])
	default:
		err = fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
	return true
}

func (r *repl) start(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: start <missionId> [contributorId]")
	}
	contributor := ""
	if len(args) > 1 {
		contributor = args[1]
	}
	s, err := r.director.StartMission(args[0], contributor)
	if err != nil {
		return err
	}
	r.current = s
	fmt.Printf("[%s] in progress\n", s.MissionID())
	return nil
}

func (r *repl) activate(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: act <moduleId> <heatDelta>")
	}
	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("heat delta: %w", err)
	}
	return r.withSession(func(s *session.Session) error {
		heat, err := s.Activate(args[0], delta)
		fmt.Printf("heat=%.2f\n", heat)
		return err
	})
}

func (r *repl) action(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: action <name>")
	}
	return r.withSession(func(s *session.Session) error {
		heat, err := s.ActivateAction(args[0])
		fmt.Printf("heat=%.2f\n", heat)
		return err
	})
}

func (r *repl) alert(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: alert <amount>")
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	return r.withSession(func(s *session.Session) error {
		fmt.Printf("alert=%.3f\n", s.SpikeAlert(amount))
		return nil
	})
}

func (r *repl) decay(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: decay <seconds>")
	}
	dt, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("seconds: %w", err)
	}
	return r.withSession(func(s *session.Session) error {
		fmt.Printf("alert=%.3f\n", s.DecayAlert(dt))
		return nil
	})
}

func (r *repl) tension() error {
	return r.withSession(func(s *session.Session) error {
		t, err := s.Tension()
		if err != nil {
			return err
		}
		fmt.Printf("tension=%.3f spawnInterval=x%.2f spawnCount=x%.2f aggression=x%.2f intensity=%.2f\n",
			t.Tension, t.SpawnIntervalMultiplier, t.SpawnCountMultiplier, t.AggressionMultiplier, t.Intensity)
		return nil
	})
}

func (r *repl) complete(args []string) error {
	success := true
	if len(args) > 0 {
		switch args[0] {
		case "ok", "success", "true":
		case "fail", "failed", "false":
			success = false
		default:
			return errors.New("usage: complete [ok|fail]")
		}
	}
	return r.withSession(func(s *session.Session) error {
		rep, err := s.Complete(success)
		if err != nil {
			return err
		}
		r.current = nil
		r.last = &rep
		fmt.Printf("[%s] %s elapsed=%s heat=%.2f score=%.3f tier=%s\n  digest=%s\n",
			rep.Outcome.MissionID, rep.Outcome.State, rep.Outcome.Elapsed.Round(time.Millisecond),
			rep.Outcome.FinalHeat, rep.Score.PerformanceScore, rep.Score.Tier, rep.Digest)
		if rep.ExportItemID != "" {
			fmt.Printf("  export item=%s\n", rep.ExportItemID)
		}
		return nil
	})
}

func (r *repl) remix(args []string) error {
	if r.last == nil {
		return errors.New("no completed mission to remix")
	}
	n := 5
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return errors.New("usage: remix [count]")
		}
		n = v
	}
	stream := r.last.Remix("remix")
	fmt.Printf("seed=%s\n", r.last.Seed(""))
	for i := 0; i < n; i++ {
		fmt.Printf("  %d: %.6f\n", i, stream.Float64())
	}
	return nil
}

func (r *repl) status() {
	if r.current != nil {
		fmt.Println(r.current)
	} else {
		fmt.Println("no current mission")
	}
	st := r.queue.Stats()
	fmt.Printf("export: pending=%d delivered=%d failed=%d running=%v\n", st.Pending, st.Delivered, st.Failed, st.Running)
}

func (r *repl) withSession(fn func(s *session.Session) error) error {
	if r.current == nil {
		return errors.New("no current mission; use 'start <missionId>'")
	}
	return fn(r.current)
}

func printHelp() {
	fmt.Println(`  start <missionId> [contributorId]   begin a mission
  act <moduleId> <heatDelta>          record a module activation
  action <name>                       activation using the heat modifier table
  pause | resume
  alert <amount>                      immediate alert spike
  decay <seconds>                     decay the alert signal
  tension                             evaluate current tension
  complete [ok|fail]                  end the mission
  remix [count]                       deterministic draws from the last digest
  status | failed | retry | quit`)
}
// #endregion repl

// #region offline-sender
// offlineSender fails every delivery so items land in manual sync when no
// ledger endpoint is configured.
type offlineSender struct{}

func (offlineSender) Send(ctx context.Context, p export.Payload) (export.Receipt, error) {
	return export.Receipt{}, fmt.Errorf("%w: no endpoint configured", export.ErrDelivery)
}
// #endregion offline-sender
