// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/TFMV/VecTrainer/internal/metrics"
	"github.com/TFMV/VecTrainer/internal/pipeline"
	"github.com/TFMV/VecTrainer/internal/store"
	"github.com/TFMV/VecTrainer/pkg/api"
	"github.com/TFMV/VecTrainer/pkg/config"
	"github.com/TFMV/VecTrainer/pkg/db"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/TFMV/VecTrainer/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	mode := flag.String("mode", "lstm", "Pipeline to run: convert, word2vec, lstm, similarity or project")
	query := flag.String("query", "", "Comma separated query words for similarity mode")
	k := flag.Int("k", 10, "Number of neighbours per query in similarity mode")
	flag.Parse()

	os.Exit(run(*configPath, *mode, pipeline.Options{Queries: splitQueries(*query), K: *k}))
}

func run(configPath, modeName string, opts pipeline.Options) int {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return apperrors.ExitCode(err)
	}
	mode, err := pipeline.ParseMode(modeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return apperrors.ExitCode(err)
	}

	logger, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		logger.Error("Failed to register metrics: %v", err)
		return 1
	}

	if cfg.Metrics.Enabled {
		shutdown := api.StartServer(cfg.Metrics.Addr, api.NewRouter(logger, m.Progress.Status, reg), logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("Monitoring server shutdown: %v", err)
			}
		}()
	}

	var recorder pipeline.RunRecorder
	if cfg.DBCreds.Enabled {
		pool, err := db.NewConnection(ctx, cfg.DBCreds)
		if err != nil {
			logger.Error("Unable to connect to database: %v", err)
			return apperrors.ExitCode(err)
		}
		defer pool.Close()

		runs := store.New(pool)
		if err := runs.EnsureSchema(ctx); err != nil {
			logger.Error("Unable to prepare run store: %v", err)
			return 1
		}
		recorder = runs
	}

	runner := pipeline.NewRunner(cfg, logger, m, recorder)
	summary, err := runner.Run(ctx, mode, opts)
	if err != nil {
		logger.Error("%s failed: %v", mode, err)
		return apperrors.ExitCode(err)
	}

	for _, path := range summary.Outputs {
		logger.Debug("wrote %s", path)
	}
	fmt.Printf("Loading time: %s\n", summary.Loading)
	fmt.Printf("Processing time: %s\n", summary.Processing)
	return 0
}

func splitQueries(s string) []string {
	var out []string
	for _, q := range strings.Split(s, ",") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
