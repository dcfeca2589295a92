package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"rtcore/kernel"
)

func main() {
	var (
		inPath  = flag.String("in", "", "Snapshot file written by rtcore -dump (- for stdin).")
		section = flag.String("show", "all", "sem|timer|task|active|all.")
	)
	flag.Parse()

	if *inPath == "" {
		fatalf("usage: rtkdump -in snap.msgpack [-show sem|timer|task|active|all]")
	}

	var r io.Reader = os.Stdin
	if *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			fatalf("open: %v", err)
		}
		defer f.Close()
		r = f
	}

	snap, err := kernel.DecodeSnapshot(r)
	if err != nil {
		fatalf("%v", err)
	}
	if err := render(os.Stdout, snap, strings.ToLower(*section)); err != nil {
		fatalf("%v", err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

func render(w io.Writer, snap kernel.Snapshot, section string) error {
	show := func(name string) bool { return section == "all" || section == name }
	switch section {
	case "all", "sem", "timer", "task", "active":
	default:
		return fmt.Errorf("unknown section: %s", section)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ticks\t%d\tyields\t%d\tpanics\t%d\n\n", snap.Ticks, snap.Yields, snap.Panics)

	if show("sem") {
		fmt.Fprintln(tw, "SEMAPHORE\tPOLICY\tCOUNT\tWAITING\tFIRST\tOWNER\tDEAD")
		for _, s := range snap.Semaphores {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%t\n",
				s.Name, s.Policy, s.Count, s.Waiting, taskRef(s.FirstWaiting), taskRef(s.Owner), s.OwnerKilled)
		}
		fmt.Fprintln(tw)
	}
	if show("timer") {
		fmt.Fprintln(tw, "TIMER\tID\tSTATE\tINITIAL\tRESCHED\tREMAINING\tEXPIRED")
		for _, t := range snap.Timers {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\n",
				t.Name, t.ID, timerState(t), t.Initial, t.Reschedule, t.Remaining, t.Expirations)
		}
		fmt.Fprintln(tw)
	}
	if show("task") {
		fmt.Fprintln(tw, "TASK\tID\tSTATUS\tPRIO\tBASE\tLOCKS\tSLICE")
		for _, t := range snap.Tasks {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\n",
				t.Name, t.ID, t.Status, t.Priority, t.BasePriority, t.OwnedLocks, t.TimeSlice)
		}
		fmt.Fprintf(tw, "ready\t%v\n\n", snap.Ready)
	}
	if show("active") {
		fmt.Fprintln(tw, "ACTIVE\tKIND\tDELTA\tDUE")
		var due uint64
		for _, e := range snap.Active {
			due += uint64(e.Delta)
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", e.Name, e.Kind, e.Delta, due)
		}
	}
	return tw.Flush()
}

func taskRef(id kernel.TaskID) string {
	if id == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", id)
}

func timerState(t kernel.TimerInfo) string {
	switch {
	case t.Paused:
		return "paused"
	case t.Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}
