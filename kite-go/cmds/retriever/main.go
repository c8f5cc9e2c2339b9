package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/google/shlex"

	"github.com/kiteco/retriever/kite-go/fetch"
	"github.com/kiteco/retriever/kite-go/retrieve"
	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-go/shell"
	"github.com/kiteco/retriever/kite-go/warden"
	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/kitelog"
	"github.com/kiteco/retriever/kite-golib/rollbar"
)

type fetchCmd struct {
	Config     string   `arg:"-c" help:"yaml config file"`
	Identities []string `arg:"positional,required" help:"repositories as <type>+<url>[@ref], e.g. git+https://github.com/kiteco/kiteco@master"`
}

type execCmd struct {
	Dir          string        `help:"working directory of the command"`
	Timeout      time.Duration `help:"kill the command after this long"`
	MaxBytes     int64         `arg:"--max-bytes" help:"kill the command once its output (or the watched directory) exceeds this many bytes"`
	WatchDir     string        `arg:"--watch-dir" help:"directory whose size counts against --max-bytes"`
	AllowFailure bool          `arg:"--allow-failure" help:"report a non-zero exit instead of failing"`
	Command      string        `arg:"positional,required" help:"command line, split like a posix shell but not interpreted by one"`
}

type jailCmd struct {
	Config  string   `arg:"-c" help:"yaml config file"`
	Docker  string   `help:"run in a docker container from this image instead of a warden jail"`
	In      []string `arg:"--in,separate" help:"host:jailed file to copy in"`
	Out     []string `arg:"--out,separate" help:"jailed:host file to copy out"`
	Scripts []string `arg:"positional,required" help:"commands to run in the jail, in order"`
}

var args struct {
	Fetch *fetchCmd `arg:"subcommand:fetch" help:"retrieve, manifest, archive and publish repositories"`
	Exec  *execCmd  `arg:"subcommand:exec" help:"run one command under time and size limits"`
	Jail  *jailCmd  `arg:"subcommand:jail" help:"run a script in a jail"`
}

func main() {
	p := arg.MustParse(&args)
	log := kitelog.NewForComponent("retriever")
	rollbar.SetComponent("retriever")

	var err error
	switch {
	case args.Fetch != nil:
		err = runFetch(args.Fetch, log)
	case args.Exec != nil:
		var code int
		code, err = runExec(args.Exec, log)
		if err == nil && code != 0 {
			os.Exit(code)
		}
	case args.Jail != nil:
		err = runJail(args.Jail, log)
	default:
		p.Fail("missing subcommand")
	}
	if err != nil {
		log.Printf("%v", err)
		if args.Fetch == nil {
			// fetch reports each failed identity itself
			rollbar.Error(err, strings.Join(os.Args[1:], " "))
		}
		rollbar.Wait()
		os.Exit(1)
	}
}

func runFetch(cmd *fetchCmd, log *kitelog.Logger) error {
	cfg, err := fetch.LoadConfig(cmd.Config)
	if err != nil {
		return err
	}
	pipeline, err := fetch.NewPipeline(cfg, log)
	if err != nil {
		return err
	}

	var errs errors.Errors
	for _, s := range cmd.Identities {
		id, err := retrieve.ParseIdentity(s)
		if err != nil {
			errs = errors.Append(errs, err)
			continue
		}
		report, err := pipeline.Run(id)
		if err != nil {
			rollbar.Error(err, id.String())
			errs = errors.Append(errs, err)
			continue
		}
		dest := report.Archive.Path
		if report.Published != nil {
			dest = report.Published.Archive
		}
		fmt.Printf("%s\t%s\t%s\n", id, report.Retrieved.Revision, dest)
	}
	return errs
}

func runExec(cmd *execCmd, log *kitelog.Logger) (int, error) {
	argv, err := shlex.Split(cmd.Command)
	if err != nil {
		return 0, errors.Wrapf(err, "error splitting %q", cmd.Command)
	}
	if len(argv) == 0 {
		return 0, sandbox.ErrEmptyCommand
	}

	out, code, err := shell.New(log).Run(sandbox.Argv(argv[0], argv[1:]...), shell.Options{
		Dir:          cmd.Dir,
		Limits:       sandbox.Limits{Timeout: cmd.Timeout, MaxBytes: cmd.MaxBytes},
		WatchDir:     cmd.WatchDir,
		AllowFailure: cmd.AllowFailure,
	})
	if err != nil {
		return 0, err
	}
	os.Stdout.WriteString(out)
	return code, nil
}

func runJail(cmd *jailCmd, log *kitelog.Logger) error {
	copyIn, err := parseCopies(cmd.In)
	if err != nil {
		return err
	}
	copyOut, err := parseCopies(cmd.Out)
	if err != nil {
		return err
	}

	var jail warden.Jail
	if cmd.Docker != "" {
		jail, err = warden.NewContainerJail(cmd.Docker, log)
		if err != nil {
			return err
		}
	} else {
		cfg, err := fetch.LoadConfig(cmd.Config)
		if err != nil {
			return err
		}
		jail = warden.NewClient(cfg.Warden, log).NewSession()
	}

	stdout, err := warden.RunCommandInJail(jail, cmd.Scripts, copyIn, copyOut)
	if err != nil {
		return err
	}
	fmt.Println(stdout)
	return nil
}

// parseCopies parses from:to pairs
func parseCopies(pairs []string) ([]warden.Copy, error) {
	var copies []warden.Copy
	for _, p := range pairs {
		i := strings.LastIndex(p, ":")
		if i <= 0 || i == len(p)-1 {
			return nil, errors.Errorf("expected from:to, got %q", p)
		}
		copies = append(copies, warden.Copy{From: p[:i], To: p[i+1:]})
	}
	return copies, nil
}
