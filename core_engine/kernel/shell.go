package kernel

import "strings"

const (
	CommandBufferSize = 256

	prompt           = "> "
	echoPrefixLength = len("echo ")
	helpText         = "Available commands: exit, help, clear, echo <message>\n"
)

const banner = "\x02\x01\x0f\x01  ______    _     _             ____   _____ \n" +
	" |  ____|  (_)   | |           / __ \\ / ____|\n" +
	" | |__ _ __ _  __| | __ _  ___| |  | | (___  \n" +
	" |  __| '__| |/ _` |/ _` |/ _ \\ |  | |\\___ \\\n" +
	" | |  | |  | | (_| | (_| |  __/ |__| |____) |\n" +
	" |_|  |_|  |_|\\__,_|\\__, |\\___|\\____/|_____/ \n" +
	"                     __/ |                   \n" +
	"                    |___/                    \n"

// Terminal is the output side of the console the shell writes to.
type Terminal interface {
	Print(text string)
	Clear()
}

// Shell dispatches command lines by prefix. "exitnow" exits and "helpme"
// prints help.
type Shell struct {
	term Terminal
}

// NewShell returns a shell that writes to term.
func NewShell(term Terminal) *Shell {
	return &Shell{term: term}
}

// PrintBanner prints the boot logo and greeting.
func (s *Shell) PrintBanner() { s.term.Print(banner) }

// PrintPrompt prints the command prompt.
func (s *Shell) PrintPrompt() { s.term.Print(prompt) }

// Execute runs one command line and reports whether the shell should keep
// going.
func (s *Shell) Execute(input string) bool {
	switch {
	case strings.HasPrefix(input, "exit"):
		return false

	case strings.HasPrefix(input, "help"):
		s.term.Print(helpText)

	case strings.HasPrefix(input, "clear"):
		s.term.Clear()

	case strings.HasPrefix(input, "echo"):
		// "echo" with no separator has no message.
		msg := ""
		if len(input) > echoPrefixLength {
			msg = input[echoPrefixLength:]
		}
		s.term.Print("[ECHO] ")
		s.term.Print(msg)
		s.term.Print("\n")

	case input == "":

	default:
		s.term.Print("Unknown command: ")
		s.term.Print(input)
		s.term.Print("\n")
	}
	return true
}
