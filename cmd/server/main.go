// Command server runs the claimdesk HTTP API.
//
//	server -config configs/config.yaml           serve until SIGINT/SIGTERM
//	server -config configs/config.yaml -migrate  create or update tables and exit
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/simp-lee/claimdesk/internal/app"
	"github.com/simp-lee/claimdesk/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "configs/config.yaml", "path to configuration file")
	migrateOnly := fs.Bool("migrate", false, "create or update database tables, then exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return 1
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "failed to create app:", err)
		return 1
	}

	if *migrateOnly {
		defer a.Close()
		if err := a.Migrate(); err != nil {
			fmt.Fprintln(stderr, "migration failed:", err)
			return 1
		}
		return 0
	}

	if err := a.Run(); err != nil {
		fmt.Fprintln(stderr, "server error:", err)
		return 1
	}
	return 0
}
