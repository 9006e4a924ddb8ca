// Command gominer is a CPU proof-of-work miner for Bitcoin-family
// blockchains: it fetches work from a GetBlockTemplate/getwork JSON-RPC
// pool or a Stratum pool, searches the header's nonce space across
// worker threads, and submits any solution found.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/boomstarternetwork/gominer/internal/config"
	"github.com/boomstarternetwork/gominer/internal/longpoll"
	"github.com/boomstarternetwork/gominer/internal/miner"
	"github.com/boomstarternetwork/gominer/internal/rpc"
	"github.com/boomstarternetwork/gominer/internal/stratum"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// protocolHooks are the two worker-facing capabilities that differ by
// upstream protocol (spec.md §9's "tagged variant... common produce-Work
// capability"): how a non-Stratum worker asks for fresh work, and how any
// worker submits a solution. Benchmark mode supplies neither.
type protocolHooks struct {
	RequestWork    func() (*work.Work, error)
	SubmitSolution func(*work.Work)
}

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	configureLogging(cfg)

	slot := work.NewSharedSlot()
	restart := work.NewRestartFlags(cfg.Threads)
	rates := miner.NewHashrates(cfg.Threads)
	stats := &rpc.Stats{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logrus.Info("gominer: shutting down")
		cancel()
	}()

	var wg sync.WaitGroup
	var hooks protocolHooks

	switch {
	case cfg.Benchmark:
		slot.Set(miner.BenchmarkWork(), time.Now())
		restart.AssertAll()
	case cfg.Protocol == config.ProtocolStratum:
		hooks = runStratum(ctx, &wg, cfg, slot, restart, stats)
	default:
		hooks = runGBT(ctx, &wg, cfg, slot, restart, stats)
	}

	startWorkers(ctx, &wg, cfg, slot, restart, rates, hooks)

	go logSummary(ctx, rates, stats)

	wg.Wait()
	logrus.WithFields(logrus.Fields{
		"accepted": stats.Accepted(),
		"rejected": stats.Rejected(),
	}).Info("gominer: exiting")
}

func configureLogging(cfg *config.Config) {
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug || cfg.ProtocolDump {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if cfg.Quiet {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// runGBT wires the Work I/O task and the long-poll task for a GBT/getwork
// pool, per spec.md §4.4/§4.5, seeds the slot with an initial template so
// workers have something to scan immediately, and returns the hooks
// workers use to request fresh work and submit solutions.
func runGBT(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, slot *work.SharedSlot, restart *work.RestartFlags, stats *rpc.Stats) protocolHooks {
	client := rpc.NewClient(rpc.Config{
		URL:           cfg.RawURL,
		User:          cfg.User,
		Password:      cfg.Password,
		Timeout:       cfg.Timeout,
		PayoutAddress: cfg.PayoutAddress,
		CoinbaseSig:   cfg.CoinbaseSig,
		AllowGetWork:  cfg.AllowGetWork,
		Retries:       cfg.Retries,
		FailPause:     cfg.FailPause,
	})
	client.Stats = stats

	lp := longpoll.NewTask(client, slot, restart)

	res, err := client.GetUpstreamWork("")
	if err != nil {
		logrus.WithError(err).Fatal("gominer: initial getblocktemplate/getwork failed")
	}
	slot.Set(res.Work, time.Now())
	restart.AssertAll()
	seedLongPoll(lp, cfg, res)

	wg.Add(1)
	go func() {
		defer wg.Done()
		lp.Serve(ctx)
	}()

	return protocolHooks{
		RequestWork: func() (*work.Work, error) {
			r, err := client.GetUpstreamWork("")
			if errors.Is(err, rpc.ErrFatalNoPayoutAddress) {
				// spec.md §7: with GetWork fallback unavailable, a
				// template demanding a payout address we don't have is
				// unrecoverable -- exit rather than spin retrying forever.
				logrus.WithError(err).Fatal("gominer: cannot continue mining")
			}
			if err != nil {
				return nil, err
			}
			seedLongPoll(lp, cfg, r)
			return r.Work, nil
		},
		SubmitSolution: func(solved *work.Work) {
			snap, _ := slot.Snapshot()
			if err := client.SubmitUpstreamWork(solved, solved.Txs, snap, cfg.SubmitOld); err != nil {
				logrus.WithError(err).Warn("gominer: submitting solution")
			}
		},
	}
}

// seedLongPoll implements spec.md §4.1 step 9: bootstrap the long-poll
// task from a freshly decoded template's longpollid/longpolluri, if any.
func seedLongPoll(lp *longpoll.Task, cfg *config.Config, res *rpc.Result) {
	if res.LongPollURI != "" {
		lp.Seed(res.LongPollURI)
	} else if res.LongPollID != "" {
		lp.Seed(cfg.RawURL)
	}
}

// runStratum wires a Stratum session with the connect/subscribe/authorize
// state machine and reconnect policy of spec.md §4.6, and returns the
// submit hook workers use. Stratum work arrives via mining.notify, not
// worker-initiated requests, so RequestWork is left nil.
func runStratum(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, slot *work.SharedSlot, restart *work.RestartFlags, stats *rpc.Stats) protocolHooks {
	var mu sync.Mutex
	var current *stratum.Session

	wg.Add(1)
	go func() {
		defer wg.Done()
		attempt := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			session := stratum.NewSession(stratum.Params{
				URL:       cfg.DialAddr,
				Login:     cfg.User,
				Password:  cfg.Password,
				Algorithm: cfg.Algorithm,
				Slot:      slot,
				Restart:   restart,
			})
			session.SubmitResult = func(accepted bool, errMsg string) {
				if accepted {
					stats.RecordAccepted()
				} else {
					stats.RecordRejected(errMsg)
				}
			}

			mu.Lock()
			current = session
			mu.Unlock()

			err := session.Serve(ctx)
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Warn("stratum: session ended")

			attempt++
			if cfg.Retries >= 0 && attempt > cfg.Retries {
				logrus.Error("stratum: retries exhausted, giving up")
				return
			}
			select {
			case <-time.After(cfg.FailPause):
			case <-ctx.Done():
				return
			}
		}
	}()

	return protocolHooks{
		SubmitSolution: func(solved *work.Work) {
			mu.Lock()
			session := current
			mu.Unlock()
			if session == nil {
				return
			}
			if err := session.Submit(solved); err != nil {
				logrus.WithError(err).Warn("stratum: submitting solution")
			}
		},
	}
}

func startWorkers(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, slot *work.SharedSlot, restart *work.RestartFlags, rates *miner.Hashrates, hooks protocolHooks) {
	for i := 0; i < cfg.Threads; i++ {
		w := &miner.Worker{
			Index:          i,
			Total:          cfg.Threads,
			Algorithm:      cfg.Algorithm,
			ScanTime:       cfg.ScanTime,
			Stratum:        cfg.Protocol == config.ProtocolStratum,
			Slot:           slot,
			Restart:        restart,
			Rates:          rates,
			RequestWork:    hooks.RequestWork,
			SubmitSolution: hooks.SubmitSolution,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
}

// logSummary logs the aggregate hash rate and the share counters every 30
// seconds; per-thread rates are not logged.
func logSummary(ctx context.Context, rates *miner.Hashrates, stats *rpc.Stats) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logrus.WithFields(logrus.Fields{
				"khash_s":  rates.Total() / 1000,
				"accepted": stats.Accepted(),
				"rejected": stats.Rejected(),
			}).Info("gominer: status")
		}
	}
}
