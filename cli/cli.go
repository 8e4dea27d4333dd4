// Package cli implements the inkwell command line: the server, Badger
// maintenance and the admin commands that provision authors and groups.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"inkwell/app/config"

	"github.com/fatih/color"
)

const Version = "1.0.0"

// CLI carries the streams and hooks the commands use.
type CLI struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	load   func() (*config.Config, error)
	now    func() time.Time
}

// New returns a CLI bound to the process streams and environment.
func New() *CLI {
	return &CLI{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		load:   config.Load,
		now:    time.Now,
	}
}

// Run executes args with the process streams and returns the exit code.
func Run(args []string) int {
	return New().Run(args)
}

// Run dispatches args[0] and returns the exit code.
func (c *CLI) Run(args []string) int {
	if len(args) < 1 {
		c.printHelp()
		return 1
	}

	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "help", "-h", "--help":
		c.printHelp()
		return 0
	case "version":
		fmt.Fprintf(c.out, "inkwell version %s\n", Version)
		return 0
	case "serve":
		return c.serve(rest)
	case "init":
		return c.initDB(rest)
	case "clean":
		return c.clean(rest)
	case "backup":
		return c.backup(rest)
	case "restore":
		return c.restore(rest)
	case "author":
		return c.author(rest)
	case "group":
		return c.group(rest)
	case "session":
		return c.session(rest)
	default:
		c.failf("Unknown command: %s\n", args[0])
		c.printHelp()
		return 1
	}
}

func (c *CLI) printHelp() {
	helpText := `Usage: inkwell <command> [options]

Commands:
  serve [--addr <addr>]                      Run the blog server
  init                                       Initialize a new empty Badger database
  clean [--yes]                              Remove the Badger database
  backup [file]                              Back up the Badger database
  restore [--yes] <file>                     Restore the Badger database from a backup
  author add <username>                      Register an author
  author delete <username>                   Delete an author with their posts and comments
  group add <slug> <title> <description>     Create a group
  group list                                 List groups
  group delete <slug>                        Delete a group, keeping its posts
  session <username>                         Print a session cookie for username
  version                                    Show version information
  help                                       Display this help message

Settings come from INKWELL_* environment variables or a .env file.
Deletes clear a redis cache directly; a running server with an in-memory
cache keeps serving affected pages until INKWELL_CACHE_TTL passes.
`
	fmt.Fprintln(c.out, helpText)
}

func (c *CLI) config() (*config.Config, bool) {
	cfg, err := c.load()
	if err != nil {
		c.failf("Error: %v\n", err)
		return nil, false
	}
	return cfg, true
}

func (c *CLI) okf(format string, args ...interface{}) {
	fmt.Fprint(c.out, color.GreenString(format, args...))
}

func (c *CLI) warnf(format string, args ...interface{}) {
	fmt.Fprint(c.out, color.YellowString(format, args...))
}

func (c *CLI) failf(format string, args ...interface{}) {
	fmt.Fprint(c.errOut, color.RedString(format, args...))
}

// confirm asks a yes/no question; anything but y or Y declines.
func (c *CLI) confirm(question string) bool {
	fmt.Fprintf(c.out, "%s [y/N] ", question)
	scanner := bufio.NewScanner(c.in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.TrimSpace(scanner.Text())
	return answer == "y" || answer == "Y"
}

// hasFlag removes the first occurrence of any of names from args.
func hasFlag(args []string, names ...string) ([]string, bool) {
	for i, a := range args {
		for _, n := range names {
			if a == n {
				return append(append([]string{}, args[:i]...), args[i+1:]...), true
			}
		}
	}
	return args, false
}
