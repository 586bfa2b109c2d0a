package cmd

import (
	"fmt"
	"os"

	"clustersched/internal/lifecycle"
	"clustersched/internal/loop"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "supervisor <workload_argv...>",
	Short: "Drive a workload's big.LITTLE cluster affinity from live hardware counters",
	Long: `supervisor forks and execs a workload, samples per-CPU hardware performance
counters every 20ms, consults a policy (collector/predictor/agent) for the
next cluster state, and applies it via taskset.`,
	// The workload's own flags must pass through untouched: this command
	// never parses them, only forwards argv to exec.
	DisableFlagParsing: true,
	Args:               requireWorkloadArgv,
	RunE:               runSupervisor,
	SilenceUsage:       true,
}

// requireWorkloadArgv prints the spec-mandated usage line itself (rather
// than leaving it to cobra.MinimumNArgs, whose generic "requires at least
// 1 arg(s)" message would otherwise be the only thing printed) before
// rejecting a short invocation.
func requireWorkloadArgv(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		cmd.Println("usage: supervisor <workload_argv...>")
		return fmt.Errorf("missing workload argv")
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	configureLogging()
}

func configureLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(os.Getenv("SCHED_LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	sup, err := lifecycle.Start(args)
	if err != nil {
		return fmt.Errorf("supervisor: startup failed: %w", err)
	}
	defer sup.Cleanup()

	var status loop.StatusUpdater
	if s := sup.Status(); s != nil {
		status = s
	}

	loop.Run(sup.Workload(), sup.Sampler(), sup.Adapter(), os.Getpid(), status, sup.RunID, sup.Mode())
	return nil
}
