package kernel

import (
	"example.com/fridgeos/core_engine/console"
	"example.com/fridgeos/core_engine/hal"
)

const goodbye = "\nGoodbye!\n"

// Main is the kernel entry point. It runs the shell on the console until
// the exit command and then returns.
func Main(hw hal.Hardware) {
	con := console.New(hw)
	con.Display().SetMirror(true)
	con.Clear()

	sh := NewShell(con)
	sh.PrintBanner()

	buf := make([]byte, CommandBufferSize)
	for {
		sh.PrintPrompt()
		n := con.ReadLine(buf)
		con.Print("\n")

		if !sh.Execute(string(buf[:n])) {
			break
		}
	}

	con.Print(goodbye)
}
