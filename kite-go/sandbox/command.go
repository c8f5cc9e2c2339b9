package sandbox

import (
	"runtime"
	"strings"
)

// Command is a program plus its argument vector. It is never re-parsed by a shell unless it was
// built with Line.
type Command struct {
	Path string
	Args []string
}

// Argv builds a command from a program name and its arguments
func Argv(path string, args ...string) Command {
	return Command{Path: path, Args: args}
}

// Line builds a command that runs line through the platform command interpreter. The line is passed
// as a single argument, so quoting of its contents is the caller's responsibility.
func Line(line string) Command {
	if runtime.GOOS == "windows" {
		return Command{Path: "cmd.exe", Args: []string{"/C", line}}
	}
	return Command{Path: "sh", Args: []string{"-c", line}}
}

// Empty reports whether there is no program to run
func (c Command) Empty() bool {
	return c.Path == ""
}

// String renders the command for logs, quoting arguments that a shell would split
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Path))
	for _, arg := range c.Args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$`|&;<>()*?[]{}~#") {
		return s
	}
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}
