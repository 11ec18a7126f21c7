package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/squadronhq/squadron/internal/orchestrator"
	"github.com/squadronhq/squadron/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <task>",
	Short: "Run a task with a live execution dashboard",
	Long: `Run a task exactly like 'squadron run', with a terminal dashboard
showing executions, the queue, and the event log as agents work.

Keys: tab or 1/2/3 switch views, q quits the dashboard.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatchTask,
}

func init() {
	addRunFlags(watchCmd)
}

func runWatchTask(cmd *cobra.Command, args []string) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in watch: %v", r)
		}
	}()

	description := strings.Join(args, " ")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	s, err := buildSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.submit(ctx, description); err != nil {
		return err
	}

	// The run drives the event stream; Shutdown closes it, which ends
	// the dashboard.
	summaryCh := make(chan orchestrator.RunSummary, 1)
	go func() {
		summaryCh <- s.orch.RunParallelExecution(ctx)
		s.orch.Shutdown()
	}()

	if err := tui.Watch(s.orch.Events()); err != nil {
		cancel()
		<-summaryCh
		return fmt.Errorf("dashboard: %w", err)
	}

	summary := <-summaryCh
	printSummary(summary)
	if dropped := s.orch.DroppedEventCount(); dropped > 0 {
		fmt.Printf("Note: %d progress event(s) were dropped; the dashboard may have missed updates.\n", dropped)
	}
	if summary.Deadlocked {
		return fmt.Errorf("run deadlocked with %d task(s) remaining", summary.TasksRemaining)
	}
	if summary.TasksFailed > 0 {
		return fmt.Errorf("%d task(s) failed", summary.TasksFailed)
	}
	return nil
}
