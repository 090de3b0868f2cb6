// Command claimctl is a terminal client for the claimdesk API. It keeps the
// login session in a file so successive invocations share one token.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/simp-lee/claimdesk/internal/client"
	"github.com/simp-lee/claimdesk/internal/config"
)

const usage = `usage: claimctl [-config path] [-session path] <command> [flags]

commands:
  login       -email -password   start a session
  logout                         end the session
  whoami                         show the session user
  refresh                        renew the session token
  claims      [-scope] [-q] [-status] [-project] [-page] [-size] [-sort]
  show        <id>               show one claim
  transition  <id> <action> [-comment]
  history     <id>               list status changes of a claim
  stats                          claim counts by status
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("claimctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "configs/config.yaml", "path to configuration file")
	sessionPath := fs.String("session", defaultSessionPath(), "path to the saved session")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return 1
	}
	lg, err := config.SetupLogger(&cfg.Log, "claimctl")
	if err != nil {
		fmt.Fprintln(stderr, "failed to set up logger:", err)
		return 1
	}
	defer lg.Close()

	session, err := client.LoadSession(*sessionPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	api, err := client.New(cfg.Client.BaseURL, session, cfg.Client.TimeoutDuration(), client.WithLogger(lg.Logger))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	c := &cli{
		api:         api,
		cfg:         cfg.Client,
		logger:      lg.Logger,
		sessionPath: *sessionPath,
		out:         stdout,
		errOut:      stderr,
	}
	if err := c.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return 2
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".claimctl-session.json"
	}
	return filepath.Join(dir, "claimdesk", "session.json")
}
