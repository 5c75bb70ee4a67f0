package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"example.com/fridgeos/core_engine"
	"example.com/fridgeos/core_engine/host"
	"example.com/fridgeos/core_engine/kernel"
)

func main() {
	frontend := flag.String("frontend", "", "Frontend: tui or serial (default: tui on a terminal, serial otherwise)")
	memSize := flag.Uint64("mem", core_engine.DefaultMemorySize, "Guest memory in bytes")
	debug := flag.Bool("debug", false, "Log every device access")
	logPath := flag.String("log", "", "Write the log to this file")
	script := flag.String("script", "", `Keystrokes to type at boot; Go escapes such as \n are expanded`)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fridgeos [options]\n\nBoots the FridgeOS console shell on a hosted PC.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fridgeos\n")
		fmt.Fprintf(os.Stderr, "  printf 'echo hi\\nexit\\n' | fridgeos -frontend serial\n")
		fmt.Fprintf(os.Stderr, "  fridgeos -script 'help\\n' -log fridgeos.log -debug\n")
	}
	flag.Parse()

	if *frontend == "" {
		*frontend = "serial"
		if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
			*frontend = "tui"
		}
	}
	if *frontend != "tui" && *frontend != "serial" {
		fmt.Fprintf(os.Stderr, "error: -frontend must be tui or serial\n")
		os.Exit(1)
	}

	if err := setupLog(*logPath, *frontend); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*frontend, *memSize, *debug, expandScript(*script)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setupLog keeps log output off the tcell screen unless a file is given.
func setupLog(path, frontend string) error {
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		log.SetOutput(f)
	case frontend == "tui":
		log.SetOutput(io.Discard)
	default:
		log.SetOutput(os.Stderr)
	}
	return nil
}

func expandScript(s string) string {
	if s == "" {
		return ""
	}
	if expanded, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return expanded
	}
	return s
}

func run(frontend string, memSize uint64, debug bool, script string) error {
	cfg := core_engine.Config{
		MemorySize: memSize,
		Debug:      debug,
	}
	if frontend == "serial" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			cfg.SerialOutput = host.NewCRLFWriter(os.Stdout)
		} else {
			cfg.SerialOutput = os.Stdout
		}
	}

	vm, err := core_engine.NewMachine(cfg)
	if err != nil {
		return err
	}
	defer vm.Close()

	cpu := core_engine.NewCPU(vm, 0, kernel.Main)
	cpu.Start()
	if script != "" {
		go host.TypeText(vm, script)
	}

	switch frontend {
	case "tui":
		screen, err := tcell.NewScreen()
		if err != nil {
			vm.Stop()
			return fmt.Errorf("creating screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			vm.Stop()
			return fmt.Errorf("initializing screen: %w", err)
		}
		s := host.NewScreen(screen, vm)
		s.Debug = debug
		s.Run(cpu.Done())
		screen.Fini()

	case "serial":
		s := host.NewSerial(vm, os.Stdin)
		s.Debug = debug
		if err := s.Run(cpu.Done()); err != nil {
			vm.Stop()
			return err
		}
	}

	vm.Stop()
	return cpu.Wait()
}
