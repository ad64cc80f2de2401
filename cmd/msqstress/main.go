// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command msqstress runs concurrent producer/consumer scenarios against
// msq queues and exits non-zero if any queue property is violated.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"code.hybscloud.com/msq/internal/stress"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	cmd := cmdStress()
	klog.InitFlags(nil)
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	err := cmd.Execute()
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

// overrides holds flag values applied on top of the scenario file.
type overrides struct {
	producers   int
	consumers   int
	items       int
	reclamation string
	wait        string
	bounded     int
	rounds      int
	timeout     time.Duration
}

func cmdStress() *cobra.Command {
	def := stress.DefaultConfig()
	o := &overrides{}

	cmd := &cobra.Command{
		Use:   "msqstress [SCENARIO-FILE]",
		Short: "Stress test the lock-free MPMC queue",
		Long: `Stress test the lock-free MPMC queue.

Runs producers and consumers against one queue and checks per-producer
FIFO order, conservation, absence of loss and duplication, progress within
the timeout and emptiness after each round. Settings come from the
defaults, then the optional YAML scenario file, then flags.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, o)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.producers, "producers", def.Producers, "Number of producer goroutines")
	f.IntVar(&o.consumers, "consumers", def.Consumers, "Number of consumer goroutines")
	f.IntVar(&o.items, "items", def.Items, "Values pushed by each producer per round")
	f.StringVar(&o.reclamation, "reclamation", def.Reclamation, "Reclamation scheme: epoch|hazard")
	f.StringVar(&o.wait, "wait", def.Wait, "Wait strategy: spin|yield|spinyield|backoff")
	f.IntVar(&o.bounded, "bounded", def.Bounded, "Use the bounded queue with this capacity (0 = unbounded)")
	f.IntVar(&o.rounds, "rounds", def.Rounds, "Number of rounds on the same queue")
	f.DurationVar(&o.timeout, "timeout", def.Timeout, "Deadline for each round")
	return cmd
}

// config merges defaults, the scenario file and explicitly set flags.
func (o *overrides) config(cmd *cobra.Command, args []string) (*stress.Config, error) {
	cfg := stress.DefaultConfig()
	if len(args) == 1 {
		var err error
		if cfg, err = stress.LoadConfig(args[0]); err != nil {
			return nil, err
		}
	}

	f := cmd.Flags()
	if f.Changed("producers") {
		cfg.Producers = o.producers
	}
	if f.Changed("consumers") {
		cfg.Consumers = o.consumers
	}
	if f.Changed("items") {
		cfg.Items = o.items
	}
	if f.Changed("reclamation") {
		cfg.Reclamation = o.reclamation
	}
	if f.Changed("wait") {
		cfg.Wait = o.wait
	}
	if f.Changed("bounded") {
		cfg.Bounded = o.bounded
	}
	if f.Changed("rounds") {
		cfg.Rounds = o.rounds
	}
	if f.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, args []string, o *overrides) error {
	cfg, err := o.config(cmd, args)
	if err != nil {
		klog.ErrorS(err, "Invalid scenario")
		return err
	}

	rep, err := stress.Run(cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %v\n", rep)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "PASS %v\n", rep)
	return nil
}
