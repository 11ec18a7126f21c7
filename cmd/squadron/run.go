package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/squadronhq/squadron/internal/agent"
	"github.com/squadronhq/squadron/internal/config"
	"github.com/squadronhq/squadron/internal/decompose"
	"github.com/squadronhq/squadron/internal/enforce"
	"github.com/squadronhq/squadron/internal/history"
	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/internal/orchestrator"
	"github.com/squadronhq/squadron/internal/pattern"
	"github.com/squadronhq/squadron/internal/workflow"
	"github.com/squadronhq/squadron/internal/workspace"
	"github.com/squadronhq/squadron/pkg/models"
)

var (
	runProject     string
	runAgent       string
	runPriority    int
	runMaxParallel int
	runNoDecompose bool
	runExecutor    string
	runModel       string
	runBedrock     bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task across orchestrated agents",
	Long: `Run a task through decomposition and parallel agent execution.

The task is decomposed into prioritized subtasks, each routed to a
specialized agent type and executed in an isolated git worktree. Agents
receive memory-backed context assembled from past execution patterns,
and every file access is checked against the enforcement policy first.

Executor selection (--executor):
  - api:        direct Anthropic Messages API (default)
  - claude-cli: shell out to the claude CLI per subtask

Use --no-decompose to submit the task as-is to a single agent type.
Events print as they happen; use 'squadron watch' for a live dashboard.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	addRunFlags(runCmd)
}

// addRunFlags registers the execution flags shared by run and watch.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runProject, "project", "", "Project name (default: repository directory name)")
	cmd.Flags().StringVar(&runAgent, "agent", "engineer", "Agent type when --no-decompose is set")
	cmd.Flags().IntVar(&runPriority, "priority", 0, "Task priority 1-10 (0 uses the default)")
	cmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "Override the configured parallel execution bound")
	cmd.Flags().BoolVar(&runNoDecompose, "no-decompose", false, "Submit the task directly without decomposition")
	cmd.Flags().StringVar(&runExecutor, "executor", "api", "Agent executor: api or claude-cli")
	cmd.Flags().StringVar(&runModel, "model", "", "Override the configured Claude model")
	cmd.Flags().BoolVar(&runBedrock, "bedrock", false, "Route API calls through AWS Bedrock")
}

func runTask(cmd *cobra.Command, args []string) (retErr error) {
	// Recover from panics and report them
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runTask: %v", r)
		}
	}()

	description := strings.Join(args, " ")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
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

	go consumeEvents(s.orch.Events())

	fmt.Printf("Starting task: %s\n", description)
	fmt.Printf("  Project: %s\n", s.project)
	fmt.Printf("  Max parallel: %d\n", s.orch.GetStats().MaxParallel)
	fmt.Println()

	summary := s.orch.RunParallelExecution(ctx)
	s.orch.Shutdown()

	printSummary(summary)
	if dropped := s.orch.DroppedEventCount(); dropped > 0 {
		fmt.Printf("Note: %d progress event(s) were dropped; the log above may be incomplete.\n", dropped)
	}
	if summary.Deadlocked {
		return fmt.Errorf("run deadlocked with %d task(s) remaining", summary.TasksRemaining)
	}
	if summary.TasksFailed > 0 {
		return fmt.Errorf("%d task(s) failed", summary.TasksFailed)
	}
	return nil
}

// session bundles everything a run needs: config, memory gateway, pattern
// store, decomposer, workflow selector, and the orchestrator itself.
type session struct {
	cfg      *config.Config
	project  string
	repoPath string

	gateway  *memory.Gateway
	store    *pattern.PatternStore
	planner  *decompose.Decomposer
	selector *workflow.Selector
	orch     *orchestrator.Orchestrator

	journal *history.Store
	logger  *orchestrator.DebugLogger
}

// buildSession wires the full execution stack from configuration.
func buildSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	repoPath, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	project := runProject
	if project == "" {
		project = filepath.Base(repoPath)
	}

	// Memory service auth: the environment wins over the config file.
	cfg.Memory.APIKey = config.MemoryServiceKey(cfg)

	gateway := memory.NewGateway(cfg.Memory)
	if err := gateway.Connect(ctx); err != nil {
		fmt.Printf("Warning: memory service unavailable: %v\n", err)
		fmt.Println("Agents will run without historical context.")
	} else {
		if res := gateway.EnsureSpace(ctx, project, "Squadron project space for "+project); !res.Success {
			fmt.Printf("Warning: could not ensure project space: %s\n", res.Error)
		}
	}

	store := pattern.NewStore(gateway)
	planner := decompose.New(store)
	selector := workflow.NewSelector(store, planner)

	gate := enforce.NewGate()
	if cfg.Enforcement.PolicyPath != "" {
		if err := gate.LoadPolicy(cfg.Enforcement.PolicyPath); err != nil {
			return nil, fmt.Errorf("load enforcement policy: %w", err)
		}
	}

	ws, err := workspace.NewManager(repoPath)
	if err != nil {
		return nil, fmt.Errorf("create workspace manager: %w", err)
	}

	// Journal is optional: a run still works when the history db is broken.
	journalPath := cfg.History.Path
	if journalPath == "" {
		journalPath = history.DefaultPath()
	}
	journal, err := history.Open(journalPath)
	if err != nil {
		fmt.Printf("Warning: history journal unavailable: %v\n", err)
		journal = nil
	}

	var logger *orchestrator.DebugLogger
	if cfg.Orchestrator.DebugLog != "" {
		logger, err = orchestrator.NewDebugLogger(cfg.Orchestrator.DebugLog)
		if err != nil {
			return nil, fmt.Errorf("open debug log: %w", err)
		}
	} else {
		logger = orchestrator.NewDebugLoggerForRepo(repoPath)
	}

	planner.SetDebugLog(logger.Log)
	selector.SetDebugLog(logger.Log)

	// Enforcement policy edits take effect mid-run; everything else in the
	// user config stays fixed for the session. No user config file yet is
	// fine, there is nothing to watch.
	if err := config.Watch(
		func(updated *config.Config) { applyConfigUpdate(gate, logger, updated) },
		func(err error) { logger.Log("[config] reload failed: %v", err) },
	); err != nil {
		logger.Log("[config] not watching user config: %v", err)
	}

	executor, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}

	maxParallel := cfg.Orchestrator.MaxParallel
	if runMaxParallel > 0 {
		maxParallel = runMaxParallel
	}

	ocfg := orchestrator.Config{
		MaxParallel:   maxParallel,
		MaxIterations: cfg.Orchestrator.MaxIterations,
		TaskTimeout:   cfg.Orchestrator.TaskTimeout,
		Executor:      executor,
		Memory:        gateway,
		Gate:          gate,
		Workspaces:    ws,
		Logger:        logger,
	}
	if journal != nil {
		ocfg.Journal = journal
	}

	return &session{
		cfg:      cfg,
		project:  project,
		repoPath: repoPath,
		gateway:  gateway,
		store:    store,
		planner:  planner,
		selector: selector,
		orch:     orchestrator.New(ocfg),
		journal:  journal,
		logger:   logger,
	}, nil
}

// applyConfigUpdate folds a reloaded user config into a live session. Only
// the enforcement policy is safe to swap while executions are in flight.
func applyConfigUpdate(gate *enforce.Gate, logger *orchestrator.DebugLogger, updated *config.Config) {
	logger.Log("[config] user config reloaded")
	if updated.Enforcement.PolicyPath == "" {
		return
	}
	if err := gate.LoadPolicy(updated.Enforcement.PolicyPath); err != nil {
		logger.Log("[config] enforcement policy reload failed: %v", err)
		return
	}
	logger.Log("[config] enforcement policy reloaded from %s", updated.Enforcement.PolicyPath)
}

func (s *session) close() {
	if s.journal != nil {
		s.journal.Close()
	}
	s.logger.Close()
	s.gateway.Disconnect()
}

// submit queues the work: either the raw task on one agent, or the
// decomposed subtask set with dependencies mapped to queued task IDs.
func (s *session) submit(ctx context.Context, description string) error {
	if runNoDecompose {
		agentType := models.AgentType(runAgent)
		if !agentType.Valid() {
			return fmt.Errorf("unknown agent type %q", runAgent)
		}
		id := s.orch.SubmitTask(agentType, description, s.project, nil, nil, runPriority)
		fmt.Printf("Queued task %s on %s\n\n", shortID(id), agentType)
		return nil
	}

	rec := s.selector.SelectWorkflow(ctx, workflow.Request{
		Description: description,
		Project:     s.project,
	})
	dec := s.planner.Decompose(ctx, description, s.project, nil)

	printPlan(rec, dec)

	// Subtask dependencies reference positional subtask IDs; map them to
	// the queue's task IDs as they are submitted in order.
	queued := make(map[string]string, len(dec.Subtasks))
	for _, st := range dec.Subtasks {
		var deps []string
		for _, d := range st.Dependencies {
			if id, ok := queued[d]; ok {
				deps = append(deps, id)
			}
		}
		taskCtx := map[string]any{
			"subtask_id":       st.ID,
			"decomposition_id": dec.ID,
		}
		if len(st.SkillsRequired) > 0 {
			taskCtx["skills_required"] = st.SkillsRequired
		}
		queued[st.ID] = s.orch.SubmitTask(st.SuggestedAgent, st.Description, s.project, taskCtx, deps, st.Priority)
	}
	return nil
}

// newExecutor picks the agent executor from the --executor flag.
func newExecutor(cfg *config.Config) (agent.Executor, error) {
	model := runModel
	if model == "" {
		model = cfg.Anthropic.Model
	}

	switch runExecutor {
	case "claude-cli":
		if err := CheckClaudeCLI(); err != nil {
			return nil, err
		}
		return &agent.CommandExecutor{Model: model}, nil
	case "api", "":
		apiKey, err := config.GetAPIKey(cfg)
		useBedrock := runBedrock || os.Getenv("CLAUDE_CODE_USE_BEDROCK") != ""
		if err != nil && !useBedrock {
			return nil, err
		}
		return agent.NewAPIExecutor(agent.APIConfig{
			Model:         anthropic.Model(model),
			APIKey:        apiKey,
			UseAWSBedrock: useBedrock,
			AWSRegion:     os.Getenv("AWS_REGION"),
			AWSProfile:    os.Getenv("AWS_PROFILE"),
		})
	default:
		return nil, fmt.Errorf("unknown executor %q: must be api or claude-cli", runExecutor)
	}
}

// printPlan shows the workflow recommendation and decomposed subtasks.
func printPlan(rec models.WorkflowRecommendation, dec decompose.Decomposition) {
	bold := color.New(color.Bold)

	bold.Println("Workflow:")
	fmt.Printf("  %s (%.0f%% confidence, %s routing)\n", rec.WorkflowType, rec.Confidence*100, rec.RoutingStrategy)
	if rec.Reasoning != "" {
		fmt.Printf("  %s\n", rec.Reasoning)
	}
	fmt.Println()

	bold.Printf("Plan: %s complexity, %s strategy, %.1fh estimated\n", dec.Complexity, dec.Strategy, dec.TotalEstimatedHours)
	for _, st := range dec.Subtasks {
		depNote := ""
		if len(st.Dependencies) > 0 {
			depNote = fmt.Sprintf(" (after %s)", strings.Join(st.Dependencies, ", "))
		}
		fmt.Printf("  %s [%s] %s%s\n", st.ID, st.SuggestedAgent, st.Title, depNote)
	}
	fmt.Println()
}

// consumeEvents prints orchestrator events to stdout.
func consumeEvents(events <-chan orchestrator.Event) {
	started := color.New(color.FgCyan)
	done := color.New(color.FgGreen)
	failed := color.New(color.FgRed)
	blocked := color.New(color.FgYellow)

	for event := range events {
		switch event.Type {
		case orchestrator.EventTaskStarted:
			started.Printf("[STARTED] %s (%s)\n", event.Message, event.AgentType)
		case orchestrator.EventTaskCompleted:
			done.Printf("[DONE] %s\n", event.Message)
		case orchestrator.EventTaskFailed:
			failed.Printf("[FAILED] %s: %v\n", event.Message, event.Error)
		case orchestrator.EventTaskBlocked:
			blocked.Printf("[BLOCKED] %s\n", event.Message)
		case orchestrator.EventRunDone:
			fmt.Printf("[RUN] %s\n", event.Message)
		}
	}
}

// printSummary reports the run outcome.
func printSummary(summary orchestrator.RunSummary) {
	fmt.Println()
	fmt.Printf("Run finished in %d iteration(s): %s completed, %s failed, %d remaining\n",
		summary.Iterations,
		color.GreenString("%d", summary.TasksCompleted),
		color.RedString("%d", summary.TasksFailed),
		summary.TasksRemaining)
	if summary.Deadlocked {
		color.Yellow("Deadlock: no queued task was ready to run.")
		for _, id := range summary.BlockedTasks {
			fmt.Printf("  blocked: %s\n", shortID(id))
		}
	}
}

// shortID truncates a uuid for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
