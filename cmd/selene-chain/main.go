// Package main provides the selene-chain binary entry point.
// selene-chain runs multi-step note-processing chains from YAML definitions
// against configured model backends.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	selene "github.com/SlowSpeedChase/selene-sub000"
	"github.com/SlowSpeedChase/selene-sub000/aggregate"
	"github.com/SlowSpeedChase/selene-sub000/backend"
	antbackend "github.com/SlowSpeedChase/selene-sub000/backend/anthropic"
	oaibackend "github.com/SlowSpeedChase/selene-sub000/backend/openai"
	"github.com/SlowSpeedChase/selene-sub000/config"
	"github.com/SlowSpeedChase/selene-sub000/core"
	"github.com/SlowSpeedChase/selene-sub000/logging"
	"github.com/SlowSpeedChase/selene-sub000/observer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	backendsPath string
	provider     string
	timeout      time.Duration
	logLevel     string
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "selene-chain",
		Short: "Run note-processing chains against model backends",
		Long: `selene-chain executes multi-step note-processing workflows.

Chains are YAML definitions with sequential, parallel and conditional
steps; backends are resolved by task and priority with automatic retry
and fallback.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&f.backendsPath, "backends", "b", "backends.yaml", "Backend registry file (YAML)")
	cmd.PersistentFlags().StringVar(&f.provider, "provider", "mock", "Capability provider: mock, openai or anthropic")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", 2*time.Minute, "Per-attempt invocation timeout")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	cmd.AddCommand(newRunCmd(&f), newCompareCmd(&f))
	return cmd
}

func newRunCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <chain.yaml>",
		Short: "Execute a chain definition and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf, err := config.LoadChain(args[0])
			if err != nil {
				return err
			}

			engine, err := buildEngine(f, cf)
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := engine.RunChain(ctx, cf.Chain)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newCompareCmd(f *flags) *cobra.Command {
	var task string
	var backends []string

	cmd := &cobra.Command{
		Use:   "compare <content>",
		Short: "Run one task side by side across named backends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(f, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results := engine.Compare(ctx, task, args[0], backends)
			return printJSON(results)
		},
	}

	cmd.Flags().StringVar(&task, "task", "summarize", "Task to run")
	cmd.Flags().StringSliceVar(&backends, "against", nil, "Backend names to compare (required)")
	_ = cmd.MarkFlagRequired("against")
	return cmd
}

func buildEngine(f *flags, cf *config.ChainFile) (*selene.Engine, error) {
	registry, err := config.LoadBackends(f.backendsPath)
	if err != nil {
		return nil, err
	}

	capability, err := buildCapability(f.provider)
	if err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(parseLevel(f.logLevel), "text", false)

	opts := []func(*selene.Options){
		selene.WithLogger(logger),
		selene.WithObserver(observer.NewLogging(logger)),
		selene.WithAttemptTimeout(f.timeout),
	}

	if cf != nil {
		agg, err := aggregate.ForName(cf.Aggregator)
		if err != nil {
			return nil, err
		}
		groupAgg, err := aggregate.ForName(cf.GroupAggregator)
		if err != nil {
			return nil, err
		}
		opts = append(opts, selene.WithAggregator(agg), selene.WithGroupAggregator(groupAgg))
	}

	return selene.New(registry, capability, opts...), nil
}

func buildCapability(provider string) (core.Capability, error) {
	switch strings.ToLower(provider) {
	case "mock":
		return backend.NewMock(), nil
	case "openai":
		return oaibackend.New(), nil
	case "anthropic":
		return antbackend.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want mock, openai or anthropic)", provider)
	}
}

func parseLevel(s string) logging.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LogLevelDebug
	case "info":
		return logging.LogLevelInfo
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelWarn
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
