package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zircon-rv/zircon"
	"github.com/zircon-rv/zircon/controller"
	"github.com/zircon-rv/zircon/emulator"
	"github.com/zircon-rv/zircon/trace"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}

	os.Exit(exitCode)
}

var (
	flagColor     bool
	flagInst      bool
	flagInstLog   string
	flagReg       bool
	flagRegLog    string
	flagMem       bool
	flagMemLog    string
	flagStats     bool
	flagControl   []string
	flagEnv       []string
	flagStackSize uint64
	flagVerbose   bool
)

// exitCode is the exit code of the guest, it becomes the exit code of this process
var exitCode int

func rootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "zircon FILE [-- ARGS...]",
		Short: "Run a statically linked RISC-V 64-bit Linux program",
		Long: "Run a statically linked RISC-V 64-bit Linux program in user mode emulation. System calls of the " +
			"program are forwarded to the host or emulated.",
		Args: cobra.MinimumNArgs(1),
		RunE: run,
	}

	f := c.Flags()
	// Flags after FILE belong to the program
	f.SetInterspersed(false)
	f.BoolVarP(&flagColor, "color", "c", false, "Colorize trace output, enabled by default if stdout is a terminal")
	f.BoolVarP(&flagInst, "inst", "I", false, "Trace executed instructions")
	f.StringVar(&flagInstLog, "inst-log", "", "Write the instruction trace to this file instead of stdout")
	f.BoolVarP(&flagReg, "reg", "R", false, "Trace register accesses")
	f.StringVar(&flagRegLog, "reg-log", "", "Write the register trace to this file instead of stdout")
	f.BoolVarP(&flagMem, "mem", "M", false, "Trace memory allocations and accesses")
	f.StringVar(&flagMemLog, "mem-log", "", "Write the memory trace to this file instead of stdout")
	f.BoolVarP(&flagStats, "stats", "S", false, "Print a histogram of executed instructions when the program halts")
	f.StringArrayVar(&flagControl, "control", nil, "A control sequence to apply, like "+
		"'hart:before_execute, pc == 0x10078 -> dump GPR, stop'. Can be repeated")
	f.StringArrayVarP(&flagEnv, "env", "e", nil, "Set an environment variable of the program as KEY=VALUE. "+
		"Can be repeated, the order is kept")
	f.Uint64Var(&flagStackSize, "stack-size", emulator.DefaultHartSettings().StackSize, "Size of the stack in bytes")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Log bootstrap and system calls")

	return c
}

func parseEnv(vars []string) ([]emulator.EnvVar, error) {
	env := make([]emulator.EnvVar, 0, len(vars))
	for _, v := range vars {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("environment variable '%s' is not in KEY=VALUE form", v)
		}
		env = append(env, emulator.EnvVar{Key: key, Value: value})
	}

	return env, nil
}

// traceOutput returns the log file at path, or stdout if no path is given.
func traceOutput(path string) (io.Writer, error) {
	if path == "" {
		return os.Stdout, nil
	}

	return trace.DefaultLogFiles.Get(path)
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	env, err := parseEnv(flagEnv)
	if err != nil {
		return err
	}

	cmds, err := controller.ParseStrings(flagControl...)
	if err != nil {
		return fmt.Errorf("control: %w", err)
	}

	color := flagColor
	if !cmd.Flags().Changed("color") {
		color = term.IsTerminal(int(os.Stdout.Fd()))
	}

	settings := zircon.DefaultProcessSettings()
	settings.Hart.StackSize = flagStackSize
	settings.Hart.Logger = logger

	p, err := zircon.NewProcess(settings)
	if err != nil {
		return err
	}
	defer p.Close()
	defer trace.DefaultLogFiles.CloseAll()

	if flagInst {
		w, err := traceOutput(flagInstLog)
		if err != nil {
			return err
		}
		trace.NewTracer(w, color).Instructions(p.Hart)
	}
	if flagReg {
		w, err := traceOutput(flagRegLog)
		if err != nil {
			return err
		}
		trace.NewTracer(w, color).Registers(p.Hart.Registers())
	}
	if flagMem {
		w, err := traceOutput(flagMemLog)
		if err != nil {
			return err
		}
		trace.NewTracer(w, color).Memory(p.Memory)
	}

	var stats *trace.Stats
	if flagStats {
		stats = trace.NewStats()
		stats.Attach(p.Hart)
	}

	if err := controller.Attach(p.Hart, cmds, os.Stdout); err != nil {
		return err
	}

	if err := p.LoadFile(args[0]); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := p.StartContext(ctx, args, env)

	if stats != nil {
		if _, err := stats.WriteTo(os.Stdout); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}

	if code, ok := p.ExitCode(); ok {
		exitCode = int(code & 0xff)
	}

	return nil
}
