// Command labrun builds a local lab of every kind for each requested
// algorithm, runs the matching attack and logs the verified outcome.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"oraclelab/internal/config"
	"oraclelab/internal/lab"
	"oraclelab/internal/logger"
	"oraclelab/internal/services/blockcipher"
)

func main() {
	cfg, err := config.Load()
	lg := logger.New(cfg.LogLevel)
	code := 1
	if err != nil {
		lg.Errorw("config", "error", err)
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		code = run(ctx, lg, cfg.AttackWorkers, os.Args[1:])
		stop()
	}
	_ = lg.Sync()
	os.Exit(code)
}

// run returns the process exit code: 0 when every attack succeeded, 1 when
// one failed or was aborted, 2 on bad flags.
func run(ctx context.Context, lg *zap.SugaredLogger, defaultWorkers int, args []string) int {
	fs := flag.NewFlagSet("labrun", flag.ContinueOnError)
	algs := fs.String("algorithms", blockcipher.AES, "comma separated ciphers, or \"all\"")
	kinds := fs.String("kinds", "all", "comma separated lab kinds, or \"all\"")
	workers := fs.Int("workers", defaultWorkers, "workers per byte search")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	algorithms := blockcipher.Algorithms()
	if *algs != "all" {
		algorithms = strings.Split(*algs, ",")
	}
	selected := lab.Kinds()
	if *kinds != "all" {
		selected = nil
		for _, k := range strings.Split(*kinds, ",") {
			selected = append(selected, lab.Kind(strings.TrimSpace(k)))
		}
	}

	reg := lab.NewRegistry(lg)
	var failed int
	for _, alg := range algorithms {
		for _, kind := range selected {
			info, err := reg.Create(kind, strings.TrimSpace(alg), "labrun")
			if errors.Is(err, lab.ErrUnsupported) {
				lg.Infow("skipped", "kind", kind, "algorithm", alg, "reason", err)
				continue
			}
			if err != nil {
				lg.Errorw("create failed", "kind", kind, "algorithm", alg, "error", err)
				failed++
				continue
			}
			res, err := reg.Run(ctx, info.ID, *workers)
			_ = reg.Delete(info.ID)
			if err != nil {
				lg.Errorw("run aborted", "kind", kind, "algorithm", alg, "error", err)
				return 1
			}
			if !res.Success {
				failed++
			}
			lg.Infow("result", "kind", kind, "algorithm", alg, "success", res.Success,
				"queries", res.Queries, "elapsed_ms", res.ElapsedMS, "error", res.Error)
		}
	}
	if failed > 0 {
		lg.Errorw("some attacks failed", "failed", failed)
		return 1
	}
	return 0
}
