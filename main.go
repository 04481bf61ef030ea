package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"bizscout/internal/config"
	"bizscout/internal/hierarchy"
	"bizscout/internal/logger"
	"bizscout/internal/places"
	"bizscout/internal/progress"
	"bizscout/internal/report"
	"bizscout/internal/runner"
	"bizscout/internal/sheetstore"
	"bizscout/internal/sink"
)

const reportFrom = "Bizscout Agent <agent@bizscout.dev>"

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	// 1. Config & run policy
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		slog.Error("failed to load run policy", "error", err)
		os.Exit(1)
	}

	if cfg.SerperAPIKey == "" {
		slog.Warn("SERPER_API_KEY not set, provider requests will be rejected")
	}

	// 2. Storage collaborator: authenticate once, inject everywhere.
	creds, err := cfg.Credentials()
	if err != nil {
		slog.Error("failed to resolve storage credentials", "error", err)
		os.Exit(1)
	}
	store, err := sheetstore.New(context.Background(), creds)
	if err != nil {
		slog.Error("failed to authenticate sheet store", "error", err)
		os.Exit(1)
	}

	// 3. Work list
	filter := hierarchy.NewStateFilter(cfg.TargetStates)
	entries := hierarchy.Load(cfg.InputsDir, filter)
	if len(entries) == 0 {
		slog.Error("no hierarchy data after filtering, nothing to process")
		os.Exit(1)
	}
	categories := hierarchy.LoadCategories(filepath.Join(cfg.InputsDir, "categories.json"), policy.DefaultCategories)
	slog.Info("work list loaded", "districts", len(entries), "categories", len(categories))

	// 4. Liveness endpoint
	go serveLiveness(cfg.Port)

	// 5. Wire the run
	engine := places.NewEngine(places.NewSerperClient(cfg.SerperAPIKey), policy.QueryVariants, policy.RetryPause())
	router := sink.NewRouter(store, cfg.AdminEmail)
	snk := sink.New(store, policy.SegmentCapacity)
	checkpoints := progress.New(store, cfg.ControlSheetID)

	var reporter runner.Reporter
	if cfg.EnableReports {
		var mailer report.Mailer
		if cfg.ResendAPIKey != "" && cfg.AdminEmail != "" {
			mailer = report.NewResendMailer(cfg.ResendAPIKey, reportFrom, cfg.AdminEmail)
		} else {
			slog.Warn("RESEND_API_KEY or ADMIN_EMAIL not set, district reports go to the stats worksheet only")
		}
		reporter = report.NewNotifier(mailer, store, cfg.ControlSheetID)
	}

	r := runner.New(engine, router, snk, checkpoints, reporter, policy.BaseWorksheet, policy.PolitenessDelay())

	// 6. Run. Mid-run failures keep the checkpoint pointing at the failed
	// unit; only startup problems exit non-zero.
	if err := r.Run(context.Background(), entries, categories); err != nil {
		if errors.Is(err, places.ErrFatal) {
			slog.Error("run aborted by provider rejection, fix credentials and restart", "error", err)
		} else {
			slog.Error("run aborted", "error", err)
		}
		return
	}
	slog.Info("agent finished")
}

func livenessMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Agent is running"))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func serveLiveness(port int) {
	addr := fmt.Sprintf(":%d", port)
	slog.Info("liveness endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, livenessMux()); err != nil {
		slog.Warn("liveness endpoint failed", "error", err)
	}
}
