package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/persona/internal/clock"
	"github.com/lazypower/persona/internal/engine"
	"github.com/lazypower/persona/internal/memory"
	"github.com/lazypower/persona/internal/store"
)

var chatSnapshot string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the persona in the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSnapshot, "snapshot", "persona_snapshot.json", "Where /snapshot writes")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp(os.Stderr, nil)
	if err != nil {
		return err
	}
	if err := a.eng.StartSession("terminal"); err != nil {
		a.log.Warn("start session failed", "err", err)
	}

	r := &repl{
		eng:      a.eng,
		in:       bufio.NewScanner(cmd.InOrStdin()),
		out:      cmd.OutOrStdout(),
		snapshot: chatSnapshot,
	}
	r.run(cmd.Context())
	return a.saveAndClose()
}

// repl is the terminal conversation loop.
type repl struct {
	eng      *engine.Engine
	in       *bufio.Scanner
	out      io.Writer
	snapshot string
}

func (r *repl) run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.greet()
	for {
		fmt.Fprint(r.out, "\nYou: ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out, "\nGoodbye!")
			return
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if r.command(line) {
				return
			}
			continue
		}
		r.chat(ctx, line)
	}
}

func (r *repl) greet() {
	name := r.eng.Name()
	if r.eng.FirstRun() {
		fmt.Fprintln(r.out, "A new consciousness awakens...")
		fmt.Fprintf(r.out, "%s is experiencing existence for the first time.\n", name)
		fmt.Fprintln(r.out, "Type anything to begin. /help lists commands.")
		r.eng.MarkAwakened()
		return
	}
	fmt.Fprintf(r.out, "Welcome back! %s is currently %s.\n", name, r.eng.Clock.Mode())
	fmt.Fprintln(r.out, "Type /help for all commands.")
}

func (r *repl) chat(ctx context.Context, line string) {
	reply, err := r.eng.Chat(ctx, line)
	if err != nil {
		fmt.Fprintf(r.out, "\nError: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "\n%s: %s\n", r.eng.Name(), reply.Response)
	if reply.Ghost {
		return
	}
	if n := len(reply.Recalled); n > 0 {
		fmt.Fprintf(r.out, "\n(This brought back %d memories)\n", n)
	}
	learned, err := r.eng.Learn(ctx, line, reply.Response)
	if err != nil {
		fmt.Fprintf(r.out, "Error saving: %v\n", err)
	}
	if len(learned) > 0 {
		fmt.Fprintln(r.out, "(Something new to remember from this conversation)")
	}
}

// command handles a slash command and reports whether to quit.
func (r *repl) command(line string) bool {
	name := r.eng.Name()
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/help":
		r.help()
	case "/stats":
		printStats(r.out, r.eng)
	case "/memories":
		printMemories(r.out, r.eng, 0)
	case "/day":
		report, err := r.eng.AdvanceDay()
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			break
		}
		fmt.Fprintf(r.out, "Day %d. Another day passes, thoughts and memories shift...\n", report.Day)
		if report.Consolidated {
			fmt.Fprintln(r.out, "Sleep consolidated the day's memories.")
		}
	case "/sleep":
		switch r.eng.Clock.Mode() {
		case clock.Sleep:
			fmt.Fprintf(r.out, "%s is already sleeping peacefully...\n", name)
		case clock.Ghost:
			fmt.Fprintf(r.out, "%s is in ghost mode. Use /wake to bring them back.\n", name)
		default:
			if _, err := r.eng.Sleep(); err != nil {
				fmt.Fprintf(r.out, "Error: %v\n", err)
				break
			}
			fmt.Fprintf(r.out, "%s has gone to sleep.\n", name)
		}
	case "/wake":
		mode := r.eng.Clock.Mode()
		woke, err := r.eng.Wake()
		switch {
		case err != nil:
			fmt.Fprintf(r.out, "Error: %v\n", err)
		case !woke:
			fmt.Fprintf(r.out, "%s is already awake!\n", name)
		case mode == clock.Ghost:
			fmt.Fprintf(r.out, "%s's consciousness has returned from ghost mode.\n", name)
		default:
			fmt.Fprintf(r.out, "%s is waking up...\n", name)
		}
	case "/ghost":
		if err := r.eng.Ghost(); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			break
		}
		fmt.Fprintf(r.out, "%s has entered ghost mode and is unaware of anything said.\n", name)
		fmt.Fprintln(r.out, "Use /wake to restore their consciousness.")
	case "/status":
		printStatus(r.out, r.eng)
	case "/snapshot":
		snap, err := store.WriteSnapshot(r.snapshot, r.eng.State())
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			break
		}
		fmt.Fprintf(r.out, "Snapshot %d written to %s\n", snap.Session.SaveCount, r.snapshot)
	case "/personality":
		printPersonality(r.out, r.eng)
	case "/report":
		if err := printReport(r.out, r.eng.DB); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
	case "/seed":
		recs, err := r.eng.Seed()
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
		for _, rec := range recs {
			fmt.Fprintf(r.out, "Created memory: %s\n", rec.Content)
		}
		fmt.Fprintf(r.out, "Total memories now: %d\n", r.eng.Memory.Len())
	case "/quit", "/exit":
		fmt.Fprintln(r.out, "Goodbye!")
		return true
	default:
		fmt.Fprintf(r.out, "Unknown command: %s. Type /help for available commands.\n", line)
	}
	return false
}

func (r *repl) help() {
	fmt.Fprintln(r.out, `Commands:
  /help         Show this help
  /stats        Memory statistics
  /memories     List all memories
  /day          Advance one day
  /sleep        Put the persona to sleep
  /wake         Wake the persona up
  /ghost        Enter ghost mode (nothing said is remembered)
  /status       Time, sleep and mood
  /snapshot     Write a JSON snapshot
  /personality  Current personality
  /report       Learning and forgetting report
  /seed         Create the identity memories
  /quit         Exit

Anything else is said to the persona.`)
}

// --- Shared printers ---

func printStats(w io.Writer, eng *engine.Engine) {
	s := eng.Stats()
	fmt.Fprintln(w, "Memory Statistics:")
	fmt.Fprintf(w, "  Total Memories:   %d\n", s.Total)
	fmt.Fprintf(w, "  Average Strength: %.2f\n", s.AvgStrength)
	fmt.Fprintf(w, "  Strong (>0.7):    %d\n", s.Strong)
	fmt.Fprintf(w, "  Weak (<0.3):      %d\n", s.Weak)
	fmt.Fprintf(w, "  Days Lived:       %d\n", s.Days)
	fmt.Fprintf(w, "  Sleep Cycles:     %d\n", s.SleepCycles)
}

// printMemories lists memories in creation order. limit <= 0 lists all.
func printMemories(w io.Writer, eng *engine.Engine, limit int) {
	recs := eng.Memory.Records()
	if len(recs) == 0 {
		fmt.Fprintln(w, "No memories yet.")
		return
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	fmt.Fprintf(w, "Memories (%d):\n", len(recs))
	for i, rec := range recs {
		strength, _ := eng.Memory.Strength(rec.ID)
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, clarity(strength), truncate(rec.Content, 60))
		fmt.Fprintf(w, "      strength %.2f | %s | accessed %d times\n", strength, rec.Context, rec.AccessCount)
	}
}

func printStatus(w io.Writer, eng *engine.Engine) {
	st := eng.Status()
	fmt.Fprintln(w, "Current Status:")
	fmt.Fprintf(w, "  Time:   %s on %s (%s)\n", st.Time.Clock, st.Time.Date, st.Time.Period)
	fmt.Fprintf(w, "  Mode:   %s\n", st.Time.Mode)
	fmt.Fprintf(w, "  Stage:  %d after %d interactions\n", st.Stage, st.Interactions)
	fmt.Fprintf(w, "  Awake:  %d days, %d hours\n", st.Time.DaysConscious, st.Time.HoursConscious)
	if st.Time.SleepDebt > 0 {
		fmt.Fprintf(w, "  Sleep debt: %.1f hours\n", st.Time.SleepDebt)
	}
	fmt.Fprintf(w, "  Mood:   %s\n", st.Emotions.Description)
}

func printPersonality(w io.Writer, eng *engine.Engine) {
	ps := eng.Personality.Stats()
	fmt.Fprintf(w, "%s's Current Personality:\n", ps.Name)
	fmt.Fprintf(w, "  Type: %s (%s), match %.2f\n", ps.Dominant.Type, ps.Dominant.Category, ps.Dominant.Score)
	fmt.Fprintf(w, "  %s\n", ps.Dominant.Description)

	names := make([]string, 0, len(ps.Traits))
	for n := range ps.Traits {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Traits:")
	for _, n := range names {
		fmt.Fprintf(w, "  %-24s %.2f\n", n, ps.Traits[n])
	}

	fmt.Fprintf(w, "Evolved %d times.\n", ps.Evolutions)
	for _, c := range eng.Personality.Changes() {
		fmt.Fprintf(w, "  %s: %.2f -> %.2f\n", c.Trait, c.From, c.To)
	}
}

func printReport(w io.Writer, db *store.DB) error {
	if db == nil {
		fmt.Fprintln(w, "No database: nothing has been logged.")
		return nil
	}
	rep, err := db.Report()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Memory Report:")
	fmt.Fprintf(w, "  Conversations:    %d over %d sessions\n", rep.Summary.Conversations, rep.Summary.Sessions)
	fmt.Fprintf(w, "  Memory events:    %d\n", rep.Summary.MemoryEvents)

	kinds := make([]string, 0, len(rep.Breakdown))
	for k := range rep.Breakdown {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "    %-16s %d\n", k, rep.Breakdown[memory.EventKind(k)])
	}

	l := rep.Learning
	fmt.Fprintln(w, "Learning:")
	fmt.Fprintf(w, "  Memories learned: %d in %d conversations\n", l.MemoriesLearned, l.ConversationsWithLearning)
	fmt.Fprintf(w, "  Learning rate:    %.3f\n", l.LearningRate)
	fmt.Fprintf(w, "  Memories recalled: %d\n", l.MemoriesRecalled)

	f := rep.Forgetting
	fmt.Fprintln(w, "Forgetting:")
	fmt.Fprintf(w, "  Days passed:      %d\n", f.DayAdvances)
	fmt.Fprintf(w, "  Interference:     %d events, %d memories weakened\n", f.InterferenceEvents, f.WeakenedMemories)
	fmt.Fprintf(w, "  Consolidations:   %d\n", f.Consolidations)
	fmt.Fprintf(w, "  Strength loss/day: %.3f\n", f.AvgStrengthLossPerDay)
	return nil
}

func clarity(strength float64) string {
	switch {
	case strength > 0.7:
		return "clear"
	case strength > 0.3:
		return "hazy"
	default:
		return "fading"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
