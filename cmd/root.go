// Package cmd implements the CLI command structure for planweave.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/graph"
	"github.com/planweave/planweave/internal/logging"
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/schedule"
	"github.com/planweave/planweave/internal/timeline"
	"github.com/planweave/planweave/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the planweave CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("planweave", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// Determine the subcommand; default to the interactive editor.
	subcommand := "tui"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "ls":
		return lsCommand(cfg, remainingArgs)
	case "validate":
		return validateCommand(cfg, remainingArgs)
	case "schedule":
		return scheduleCommand(cfg, remainingArgs)
	case "add":
		return addCommand(cfg, remainingArgs)
	case "link":
		return linkCommand(cfg, remainingArgs)
	case "rm":
		return rmCommand(cfg, remainingArgs)
	case "tail":
		return tailCommand(cfg, remainingArgs)
	case "doctor":
		return doctorCommand(cfg, remainingArgs, args)
	case "version", "--version", "-v":
		return versionCommand()
	case "help", "--help", "-h":
		printUsage(fs, os.Stdout)
		return nil
	default:
		// An existing file path is shorthand for "tui <plan>".
		if fi, err := os.Stat(subcommand); err == nil && !fi.IsDir() {
			cfg.PlanFile = subcommand
			return tuiCommand(ctx, cfg, remainingArgs)
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// tuiCommand launches the interactive editor.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planweave tui", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if remaining := fs.Args(); len(remaining) == 1 {
		cfg.PlanFile = remaining[0]
	} else if len(remaining) > 1 {
		return fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}
	return ui.RunTUI(ctx, cfg)
}

// lsCommand prints the task list.
func lsCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planweave ls", flag.ContinueOnError)
	order := fs.String("order", "list", "Task order (list|topo)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := plan.Load(cfg.PlanPath())
	if err != nil {
		return err
	}

	indices := make([]int, len(f.Tasks))
	for i := range indices {
		indices[i] = i
	}
	switch *order {
	case "list":
	case "topo":
		topo, ok := graph.TopoOrder(f.Tasks)
		if !ok {
			fmt.Fprintln(os.Stderr, "Note: dependency cycle detected, showing list order")
		}
		indices = topo
	default:
		return fmt.Errorf("unknown order %q, must be list or topo", *order)
	}

	violations := graph.Violations(f.Tasks)
	return printTasks(os.Stdout, f, indices, violations)
}

func printTasks(w io.Writer, f *plan.File, indices []int, violations map[string]bool) error {
	for _, i := range indices {
		t := &f.Tasks[i]
		marker := " "
		if violations[t.ID] {
			marker = "!"
		}
		line := fmt.Sprintf("%s %-8s %s .. %s (%2dd)  %s", marker, t.ID, t.Start, t.End, t.Days(), t.Name)
		if len(t.Deps) > 0 {
			line += "  [after " + strings.Join(t.Deps, ", ") + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if n := len(violations); n > 0 {
		fmt.Fprintf(w, "\n%d task(s) start before a predecessor ends\n", n)
	}
	return nil
}

// validateCommand validates the plan file against the schema.
func validateCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planweave validate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := plan.Load(cfg.PlanPath())
	if err != nil {
		return err
	}

	result := f.Validate(plan.ValidationOptions{SchemaPath: cfg.SchemaPath()})
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "Error: %s\n", e)
		}
		return fmt.Errorf("plan file is invalid (%d error(s))", len(result.Errors))
	}
	if result.UsedSchema {
		fmt.Println("Plan file is valid (schema + structural checks).")
	} else {
		fmt.Println("Plan file is valid (structural checks).")
	}
	return nil
}

// scheduleCommand runs auto-schedule and writes the plan back.
func scheduleCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planweave schedule", flag.ContinueOnError)
	dryRun := fs.Bool("n", false, "Show what would move without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := plan.Load(cfg.PlanPath())
	if err != nil {
		return err
	}

	rng := timeline.VisibleRange(f.Tasks, plan.Today())
	updated, moved := schedule.AutoSchedule(f.Tasks, rng)

	if len(moved) == 0 {
		fmt.Println("Nothing to schedule.")
		return nil
	}

	before := make(map[string]plan.Task, len(f.Tasks))
	for i := range f.Tasks {
		before[f.Tasks[i].ID] = f.Tasks[i]
	}
	for _, id := range moved {
		old := before[id]
		var cur *plan.Task
		for i := range updated {
			if updated[i].ID == id {
				cur = &updated[i]
				break
			}
		}
		fmt.Printf("%s: %s..%s -> %s..%s\n", id, old.Start, old.End, cur.Start, cur.End)
	}

	if *dryRun {
		fmt.Printf("%d task(s) would move (dry run)\n", len(moved))
		return nil
	}

	f.Tasks = updated
	if err := f.Save(cfg.PlanPath()); err != nil {
		return err
	}
	logEvent(cfg, logging.Event{Type: "auto_schedule", Detail: fmt.Sprintf("%d task(s) moved", len(moved))})
	fmt.Printf("%d task(s) moved\n", len(moved))
	return nil
}

// addCommand appends a task to the plan.
func addCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planweave add", flag.ContinueOnError)
	id := fs.String("id", "", "Task id (generated if empty)")
	name := fs.String("name", "", "Task name")
	start := fs.String("start", "", "Start date (YYYY-MM-DD)")
	end := fs.String("end", "", "End date (YYYY-MM-DD, defaults to start)")
	deps := fs.String("deps", "", "Comma-separated predecessor ids")
	color := fs.String("color", "", "Bar color (passed through)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name is required")
	}
	if *start == "" {
		return fmt.Errorf("-start is required")
	}

	startDate, err := plan.ParseDate(*start)
	if err != nil {
		return err
	}
	endDate := startDate
	if *end != "" {
		if endDate, err = plan.ParseDate(*end); err != nil {
			return err
		}
	}
	if endDate.Before(startDate) {
		return fmt.Errorf("end %s is before start %s", endDate, startDate)
	}

	f, err := plan.Load(cfg.PlanPath())
	if err != nil {
		return err
	}

	taskID := *id
	if taskID == "" {
		taskID = f.NewID(nil)
	} else if f.GetTask(taskID) != nil {
		return fmt.Errorf("task %q already exists", taskID)
	}

	task := plan.Task{
		ID:    taskID,
		Name:  *name,
		Start: startDate,
		End:   endDate,
		Color: *color,
	}
	if *deps != "" {
		for _, dep := range strings.Split(*deps, ",") {
			if d := strings.TrimSpace(dep); d != "" {
				task.Deps = append(task.Deps, d)
			}
		}
	}

	f.AddTask(task)
	if err := f.Save(cfg.PlanPath()); err != nil {
		return err
	}
	logEvent(cfg, logging.Event{Type: "add", TaskID: taskID, To: fmt.Sprintf("%s..%s", task.Start, task.End)})
	fmt.Printf("Added %s\n", taskID)
	return nil
}

// linkCommand toggles a dependency edge.
func linkCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planweave link", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) != 2 {
		return fmt.Errorf("usage: planweave link <predecessor-id> <successor-id>")
	}
	fromID, toID := remaining[0], remaining[1]

	f, err := plan.Load(cfg.PlanPath())
	if err != nil {
		return err
	}
	if !f.ToggleDep(fromID, toID) {
		return fmt.Errorf("task %q not found", toID)
	}
	if err := f.Save(cfg.PlanPath()); err != nil {
		return err
	}
	logEvent(cfg, logging.Event{Type: "link", TaskID: toID, Detail: "toggle " + fromID + " -> " + toID})

	if t := f.GetTask(toID); t != nil {
		linked := false
		for _, dep := range t.Deps {
			if dep == fromID {
				linked = true
				break
			}
		}
		if linked {
			fmt.Printf("Linked %s -> %s\n", fromID, toID)
		} else {
			fmt.Printf("Unlinked %s -> %s\n", fromID, toID)
		}
	}
	return nil
}

// rmCommand removes a task and strips references to it.
func rmCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planweave rm", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("usage: planweave rm <task-id>")
	}
	id := remaining[0]

	f, err := plan.Load(cfg.PlanPath())
	if err != nil {
		return err
	}
	if f.GetTask(id) == nil {
		return fmt.Errorf("task %q not found", id)
	}
	f.RemoveTask(id)
	if err := f.Save(cfg.PlanPath()); err != nil {
		return err
	}
	logEvent(cfg, logging.Event{Type: "remove", TaskID: id})
	fmt.Printf("Removed %s\n", id)
	return nil
}

// tailCommand tails the latest edit-audit log.
func tailCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planweave tail", flag.ContinueOnError)
	n := fs.Int("n", 20, "Number of lines to show")
	follow := fs.Bool("f", false, "Follow the log")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logDir, err := logging.FindLogDir(cfg.LogDir, cfg.ProjectRoot)
	if err != nil {
		return err
	}
	latest, err := logging.FindLatestLog(logDir)
	if err != nil {
		return err
	}
	if latest == "" {
		fmt.Println("No logs found.")
		return nil
	}
	return logging.TailLog(os.Stdout, latest, *n, *follow)
}

// doctorCommand reports configuration sources and plan file health.
func doctorCommand(cfg *config.Config, args []string, globalArgs []string) error {
	fs := flag.NewFlagSet("planweave doctor", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgFS := flag.NewFlagSet("planweave", flag.ContinueOnError)
	cfgFS.SetOutput(io.Discard)
	cfgFS.Bool("help", false, "")
	cfgFS.Bool("h", false, "")
	cfgFS.Bool("version", false, "")
	cfgFS.Bool("v", false, "")
	cws, err := config.LoadWithSources(cfgFS, globalArgs)
	if err != nil {
		return err
	}

	fmt.Println("Planweave Doctor")
	fmt.Println("================")
	fmt.Println()

	fmt.Println("Config:")
	fmt.Printf("  plan_file:   %s (%s)\n", cws.Config.PlanFile, cws.Sources["plan_file"])
	fmt.Printf("  schema_file: %s (%s)\n", cws.Config.SchemaFile, cws.Sources["schema_file"])
	fmt.Printf("  log_dir:     %s (%s)\n", cws.Config.LogDir, cws.Sources["log_dir"])
	fmt.Printf("  zoom:        %s (%s)\n", cws.Config.Zoom, cws.Sources["zoom"])
	fmt.Println()

	allOK := true

	fmt.Printf("Plan file: %s\n", cfg.PlanPath())
	f, err := plan.Load(cfg.PlanPath())
	if err != nil {
		fmt.Printf("  ❌ %v\n", err)
		allOK = false
	} else {
		result := f.Validate(plan.ValidationOptions{SchemaPath: cfg.SchemaPath()})
		if result.Valid {
			fmt.Printf("  ✅ %d task(s), valid\n", len(f.Tasks))
		} else {
			fmt.Printf("  ❌ invalid (%d error(s))\n", len(result.Errors))
			allOK = false
		}
		if _, ok := graph.TopoOrder(f.Tasks); !ok {
			fmt.Println("  ❌ dependency cycle detected")
			allOK = false
		} else if f != nil {
			fmt.Println("  ✅ dependency graph is acyclic")
		}
		if n := len(graph.Violations(f.Tasks)); n > 0 {
			fmt.Printf("  ⚠️  %d task(s) start before a predecessor ends (run: planweave schedule)\n", n)
		}
	}
	fmt.Println()

	if !allOK {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Println("All checks passed.")
	return nil
}

func versionCommand() error {
	fmt.Printf("planweave %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	return nil
}

// logEvent appends a single audit event for a non-interactive command.
func logEvent(cfg *config.Config, ev logging.Event) {
	audit, err := logging.NewSessionLogger(cfg.LogDir, cfg.ProjectRoot)
	if err != nil {
		return
	}
	defer audit.Close()
	audit.Log(ev)
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "planweave - dependency-aware Gantt plan editor")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  planweave [flags] [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui        Interactive timeline editor (default)")
	fmt.Fprintln(w, "  ls         List tasks with dates and violations")
	fmt.Fprintln(w, "  validate   Validate the plan file")
	fmt.Fprintln(w, "  schedule   Push successors past their predecessors")
	fmt.Fprintln(w, "  add        Add a task")
	fmt.Fprintln(w, "  link       Toggle a dependency edge")
	fmt.Fprintln(w, "  rm         Remove a task")
	fmt.Fprintln(w, "  tail       Tail the latest edit log")
	fmt.Fprintln(w, "  doctor     Check config and plan file health")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
