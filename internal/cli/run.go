// Package cli implements the artic command line: an HTTP view server, an
// interactive terminal browser and a bulk exporter.
package cli

import (
	"context"
	"io"
)

// Run is the main entry point. args includes the program name.
// Returns exit code.
func Run(ctx context.Context, in io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	o := NewIO(in, out, errOut)
	commands := []*Command{
		serveCommand(env),
		browseCommand(env),
		exportCommand(env),
	}

	if len(args) < 2 {
		printUsage(o, commands)
		return 0
	}

	name := args[1]
	if name == "-h" || name == "--help" || name == "help" {
		printUsage(o, commands)
		return 0
	}

	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, args[2:])
		}
	}

	o.ErrPrintln("error: unknown command:", name)
	o.ErrPrintln()
	printUsage(NewIO(in, errOut, errOut), commands)
	return 1
}

func printUsage(o *IO, commands []*Command) {
	o.Println(`artic - browse and select artworks from the Art Institute of Chicago

Usage: artic <command> [flags]

Commands:`)
	for _, cmd := range commands {
		o.Println(cmd.HelpLine())
	}
	o.Println()
	o.Println("Settings are read from --config (JSONC) and ARTIC_* environment variables.")
	o.Println(`Run "artic <command> --help" for command flags.`)
}
