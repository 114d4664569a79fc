package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/speckit/cogmem/internal/corrections"
	"github.com/speckit/cogmem/internal/engine"
	"github.com/speckit/cogmem/internal/orchestrator"
	"github.com/speckit/cogmem/internal/session"
)

var (
	// context get flags
	contextIntent    string
	contextSessionID string
	contextMode      string
	contextRerank    bool

	// correct flags
	correctReason string
	correctActor  string

	// session checkpoint flags
	checkpointSpecFolder     string
	checkpointTask           string
	checkpointLastAction     string
	checkpointContextSummary string
	checkpointPendingWork    string
	checkpointDir            string
)

// contextCmd groups the orchestrator's single get_context entry point.
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Query the context orchestrator (C13 get_context)",
}

// contextGetCmd represents `context get <query>`
var contextGetCmd = &cobra.Command{
	Use:   "get <query>",
	Short: "Retrieve context for a query via the mode-dispatched orchestrator",
	Long: `Runs the get_context entry point: resolves a mode (auto/quick/deep/focused/resume)
from --mode or --intent and returns the fused, scored, token-budgeted result.

Examples:
  mycelicmemory context get "how does the deploy pipeline retry"
  mycelicmemory context get "add rate limiting" --intent add_feature
  mycelicmemory context get "" --mode resume --session my-session`,
	Args: cobra.MinimumNArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		runContextGet(query)
	},
}

func runContextGet(query string) {
	db, cfg, err := getDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	eng := engine.New(db, cfg)
	orch := orchestrator.New(eng, eng)

	envelope := orch.GetContext(orchestrator.Input{
		Query:     query,
		Intent:    contextIntent,
		SessionID: contextSessionID,
		Mode:      orchestrator.Mode(contextMode),
		Rerank:    contextRerank,
	})

	if envelope.Meta.IsError {
		fmt.Printf("Error: %s\n", envelope.Summary)
		os.Exit(1)
	}

	fmt.Printf("🧠 %s\n", envelope.Summary)
	fmt.Println("========================================")
	fmt.Printf("Mode tool: %s | tokens: ~%d | latency: %.2fms\n\n", envelope.Meta.Tool, envelope.Meta.TokenCount, envelope.Meta.LatencyMS)

	if len(envelope.Data) == 0 {
		fmt.Println("No context items returned.")
	}
	for i, item := range envelope.Data {
		fmt.Printf("%d. %s\n", i+1, item.Title)
		fmt.Printf("   ID: %s | score: %.3f\n", item.ID, item.Score)
		fmt.Printf("   %s\n\n", item.Content)
	}
	for _, h := range envelope.Hints {
		fmt.Printf("💡 %s\n", h)
	}
}

// correctCmd groups the corrections ledger (C11) as CLI operations.
var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Record or undo a correction (supersede/deprecate/refine/merge)",
}

var correctSupersedeCmd = &cobra.Command{
	Use:   "supersede <original-id> <replacement-id>",
	Short: "Mark original as superseded by replacement",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runCorrect(func(s *corrections.Service) (*corrections.Result, error) {
			return s.Supersede(args[0], args[1], correctReason, correctActor)
		})
	},
}

var correctDeprecateCmd = &cobra.Command{
	Use:   "deprecate <memory-id>",
	Short: "Mark a memory as deprecated, with no replacement",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runCorrect(func(s *corrections.Service) (*corrections.Result, error) {
			return s.Deprecate(args[0], correctReason, correctActor)
		})
	},
}

var correctRefineCmd = &cobra.Command{
	Use:   "refine <original-id> <replacement-id>",
	Short: "Mark original as refined by replacement",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runCorrect(func(s *corrections.Service) (*corrections.Result, error) {
			return s.Refine(args[0], args[1], correctReason, correctActor)
		})
	},
}

var correctMergeCmd = &cobra.Command{
	Use:   "merge <original-id> <replacement-id>",
	Short: "Mark original as merged into replacement",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runCorrect(func(s *corrections.Service) (*corrections.Result, error) {
			return s.Merge(args[0], args[1], correctReason, correctActor)
		})
	},
}

var correctUndoCmd = &cobra.Command{
	Use:   "undo <correction-id>",
	Short: "Reverse a correction, restoring both memories' stability",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, cfg, err := getDB()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		svc := corrections.New(db, cfg.Relations.Enabled)
		if err := svc.Undo(args[0]); err != nil {
			fmt.Printf("Error undoing correction: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("↩️  Correction %s undone\n", args[0])
	},
}

var correctChainCmd = &cobra.Command{
	Use:   "chain <memory-id>",
	Short: "Walk the correction chain for a memory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, cfg, err := getDB()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		svc := corrections.New(db, cfg.Relations.Enabled)
		chain, err := svc.Chain(args[0])
		if err != nil {
			fmt.Printf("Error loading correction chain: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Correction chain for %s (%d entries):\n", args[0], len(chain))
		for _, c := range chain {
			fmt.Printf("  - %s: %s -> %s (undone: %v)\n", c.CorrectionType, c.OriginalMemoryID, c.ReplacementMemoryID, c.IsUndone)
		}
	},
}

var correctStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show correction counts by type",
	Run: func(cmd *cobra.Command, args []string) {
		db, cfg, err := getDB()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		svc := corrections.New(db, cfg.Relations.Enabled)
		stats, err := svc.Stats()
		if err != nil {
			fmt.Printf("Error loading correction stats: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Correction stats:")
		for t, n := range stats.ByType {
			fmt.Printf("  %s: %d\n", t, n)
		}
		fmt.Printf("  total: %d, undone: %d\n", stats.TotalCorrections, stats.UndoneCount)
	},
}

func runCorrect(op func(*corrections.Service) (*corrections.Result, error)) {
	db, cfg, err := getDB()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := corrections.New(db, cfg.Relations.Enabled)
	result, err := op(svc)
	if err != nil {
		fmt.Printf("Error recording correction: %v\n", err)
		os.Exit(1)
	}
	if result.Skipped {
		fmt.Println("⏭️  Skipped: relations are disabled (set ENABLE_RELATIONS=true)")
		return
	}
	fmt.Printf("✅ Correction recorded: %s\n", result.Correction.ID)
	fmt.Printf("   original stability: %.3f -> %.3f\n", result.Correction.OriginalStabilityBefore, result.Correction.OriginalStabilityAfter)
	if result.Correction.ReplacementMemoryID != "" {
		fmt.Printf("   replacement stability: %.3f -> %.3f\n", *result.Correction.ReplacementStabilityBefore, *result.Correction.ReplacementStabilityAfter)
	}
}

// sessionCheckpointCmd checkpoints one session of the crash-recoverable session layer (C12).
var sessionCheckpointCmd = &cobra.Command{
	Use:   "checkpoint <session-id>",
	Short: "Persist session state and write CONTINUE_SESSION.md",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, _, err := getDB()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		mgr := session.New(db)
		dir := checkpointDir
		if dir == "" {
			dir = "."
		}
		in := session.CheckpointInput{
			SessionID:      args[0],
			SpecFolder:     checkpointSpecFolder,
			CurrentTask:    checkpointTask,
			LastAction:     checkpointLastAction,
			ContextSummary: checkpointContextSummary,
			PendingWork:    checkpointPendingWork,
		}
		if err := mgr.Checkpoint(in, dir); err != nil {
			fmt.Printf("Error checkpointing session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("💾 Checkpointed session %s (CONTINUE_SESSION.md written to %s)\n", args[0], dir)
	},
}

var sessionRecoverCmd = &cobra.Command{
	Use:   "recover <session-id>",
	Short: "Recover an interrupted session's last checkpoint",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, _, err := getDB()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		mgr := session.New(db)
		result, err := mgr.Recover(args[0])
		if err != nil {
			fmt.Printf("Error recovering session: %v\n", err)
			os.Exit(1)
		}
		if !result.Recovered {
			fmt.Printf("Session %s was not interrupted; nothing to recover\n", args[0])
			return
		}
		cp := result.Checkpoint
		fmt.Printf("🔄 Recovered session %s\n", cp.SessionID)
		fmt.Printf("   Task: %s\n", cp.CurrentTask)
		fmt.Printf("   Pending: %s\n", cp.PendingWork)
	},
}

var sessionListInterruptedCmd = &cobra.Command{
	Use:   "list-interrupted",
	Short: "List sessions left interrupted by a crash",
	Run: func(cmd *cobra.Command, args []string) {
		db, _, err := getDB()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		mgr := session.New(db)
		list, err := mgr.ListInterrupted()
		if err != nil {
			fmt.Printf("Error listing interrupted sessions: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Interrupted sessions (%d):\n", len(list))
		for _, cp := range list {
			fmt.Printf("  - %s (updated %s): %s\n", cp.SessionID, cp.UpdatedAt.Format("2006-01-02 15:04"), cp.CurrentTask)
		}
	},
}

var sessionResetInterruptedCmd = &cobra.Command{
	Use:   "reset-interrupted",
	Short: "Sweep every still-active session to interrupted (startup recovery)",
	Run: func(cmd *cobra.Command, args []string) {
		db, _, err := getDB()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		mgr := session.New(db)
		n, err := mgr.ResetInterrupted()
		if err != nil {
			fmt.Printf("Error resetting interrupted sessions: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("🧹 %d session(s) marked interrupted\n", n)
	},
}

var sessionCompleteCmd = &cobra.Command{
	Use:   "complete <session-id>",
	Short: "Mark a session cleanly finished and reset its rerank circuit breaker",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, cfg, err := getDB()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		eng := engine.New(db, cfg)
		if err := eng.CompleteSession(args[0]); err != nil {
			fmt.Printf("Error completing session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Session %s marked complete\n", args[0])
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Crash-recoverable session checkpointing (C12)",
}

func init() {
	contextGetCmd.Flags().StringVar(&contextIntent, "intent", "", "Declared intent (add_feature, refactor, security_audit, fix_bug, understand)")
	contextGetCmd.Flags().StringVar(&contextSessionID, "session", "", "Session ID for dedup and resume mode")
	contextGetCmd.Flags().StringVar(&contextMode, "mode", "", "Explicit mode (auto, quick, deep, focused, resume)")
	contextGetCmd.Flags().BoolVar(&contextRerank, "rerank", false, "Request cross-encoder reranking for deep mode")
	contextCmd.AddCommand(contextGetCmd)
	rootCmd.AddCommand(contextCmd)

	correctSupersedeCmd.Flags().StringVar(&correctReason, "reason", "", "Reason for this correction")
	correctSupersedeCmd.Flags().StringVar(&correctActor, "actor", "cli", "Actor attributed to this correction")
	correctDeprecateCmd.Flags().StringVar(&correctReason, "reason", "", "Reason for this correction")
	correctDeprecateCmd.Flags().StringVar(&correctActor, "actor", "cli", "Actor attributed to this correction")
	correctRefineCmd.Flags().StringVar(&correctReason, "reason", "", "Reason for this correction")
	correctRefineCmd.Flags().StringVar(&correctActor, "actor", "cli", "Actor attributed to this correction")
	correctMergeCmd.Flags().StringVar(&correctReason, "reason", "", "Reason for this correction")
	correctMergeCmd.Flags().StringVar(&correctActor, "actor", "cli", "Actor attributed to this correction")

	correctCmd.AddCommand(correctSupersedeCmd, correctDeprecateCmd, correctRefineCmd, correctMergeCmd, correctUndoCmd, correctChainCmd, correctStatsCmd)
	rootCmd.AddCommand(correctCmd)

	sessionCheckpointCmd.Flags().StringVar(&checkpointSpecFolder, "spec-folder", "", "Spec folder this session is scoped to")
	sessionCheckpointCmd.Flags().StringVar(&checkpointTask, "task", "", "Current task description")
	sessionCheckpointCmd.Flags().StringVar(&checkpointLastAction, "last-action", "", "Last action taken")
	sessionCheckpointCmd.Flags().StringVar(&checkpointContextSummary, "summary", "", "Context summary")
	sessionCheckpointCmd.Flags().StringVar(&checkpointPendingWork, "pending", "", "Pending work description")
	sessionCheckpointCmd.Flags().StringVar(&checkpointDir, "dir", ".", "Directory to write CONTINUE_SESSION.md into")

	sessionCmd.AddCommand(sessionCheckpointCmd, sessionRecoverCmd, sessionListInterruptedCmd, sessionResetInterruptedCmd, sessionCompleteCmd)
	rootCmd.AddCommand(sessionCmd)
}
