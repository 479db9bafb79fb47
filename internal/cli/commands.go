package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/persona/internal/mcpserver"
	"github.com/lazypower/persona/internal/store"
)

// --- stats command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr, nil)
		if err != nil {
			return err
		}
		defer a.close()
		printStats(cmd.OutOrStdout(), a.eng)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize learning and forgetting from the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr, nil)
		if err != nil {
			return err
		}
		defer a.close()
		return printReport(cmd.OutOrStdout(), a.eng.DB)
	},
}

// --- memories command ---

var memoriesLimit int

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "List memories with their current strength",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr, nil)
		if err != nil {
			return err
		}
		defer a.close()
		printMemories(cmd.OutOrStdout(), a.eng, memoriesLimit)
		return nil
	},
}

// --- recall command ---

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Recall memories related to a query",
	Long:  "Recall memories by word overlap. Recalling strengthens what is found, so the result is saved.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecall,
}

func runRecall(cmd *cobra.Command, args []string) error {
	a, err := openApp(os.Stderr, nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	recalled := a.eng.Recall(strings.Join(args, " "))
	if len(recalled) == 0 {
		fmt.Fprintln(out, "Nothing comes to mind.")
	}
	for i, rec := range recalled {
		strength, _ := a.eng.Memory.Strength(rec.ID)
		fmt.Fprintf(out, "%d. [%.2f] %s\n", i+1, strength, rec.Content)
	}
	return a.saveAndClose()
}

// --- day command ---

var dayCount int

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Advance simulated days",
	RunE:  runDay,
}

func runDay(cmd *cobra.Command, args []string) error {
	if dayCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	a, err := openApp(os.Stderr, nil)
	if err != nil {
		return err
	}
	defer a.close()
	out := cmd.OutOrStdout()

	for range dayCount {
		report, err := a.eng.AdvanceDay()
		if err != nil {
			return err
		}
		line := fmt.Sprintf("Day %d: %d memories, avg strength %.2f", report.Day, report.Stats.Total, report.Stats.AvgStrength)
		if report.Consolidated {
			line += " (slept)"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// --- export command ---

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write the persona to a JSON snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr, nil)
		if err != nil {
			return err
		}
		defer a.close()

		snap, err := store.WriteSnapshot(args[0], a.eng.State())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%d memories, hash %s) to %s\n",
			snap.Identity.Name, len(snap.Memory.Records), snap.Identity.Hash, args[0])
		return nil
	},
}

// --- import command ---

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Replace the stored persona with a JSON snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := store.ReadSnapshot(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(os.Stderr, nil)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.eng.Restore(snap.State()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d memories, day %d)\n",
			a.eng.Name(), a.eng.Memory.Len(), a.eng.Memory.Day())
		return nil
	},
}

// --- mcp command ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the persona as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr, nil)
		if err != nil {
			return err
		}
		if err := a.eng.StartSession("mcp"); err != nil {
			a.log.Warn("start session failed", "err", err)
		}
		runErr := mcpserver.Run(cmd.Context(), a.eng, VersionString())
		if err := a.saveAndClose(); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	memoriesCmd.Flags().IntVarP(&memoriesLimit, "limit", "n", 0, "Show only the most recent n memories")
	dayCmd.Flags().IntVarP(&dayCount, "count", "c", 1, "Number of days to advance")
}
