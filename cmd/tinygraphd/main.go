// Command tinygraphd is the triple store's daemon entry point: it loads
// a config file, opens the backing store, and serves the SPARQL
// endpoint over HTTP. The option-parse-then-dispatch split below follows
// cmd/psqldef/psqldef.go's parseOptions/main shape, with the
// config-file/flag/environment layering standing in for that command's
// flag-only options.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"github.com/tinygraph/tinygraph/internal/config"
	"github.com/tinygraph/tinygraph/internal/endpoint"
	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/store/sqlitestore"
	"github.com/tinygraph/tinygraph/internal/update"
	"github.com/tinygraph/tinygraph/util"
)

type options struct {
	Config          string `short:"c" long:"config" description:"Path to a YAML config file" value-name:"path"`
	Addr            string `short:"a" long:"addr" description:"HTTP listen address, overrides the config file" value-name:"addr"`
	DSN             string `short:"d" long:"dsn" description:"sqlite DSN for the backing store, overrides the config file" value-name:"dsn"`
	PreferredFormat string `long:"preferred-format" description:"Preferred result format to record in the config (the endpoint does not read it), overrides the config file" value-name:"format"`
	Help            bool   `long:"help" description:"Show this help"`
	Version         bool   `long:"version" description:"Show this version"`
}

var version string

// parseOptions parses the CLI flags and layers them over the config
// file named by --config (if any), mirroring
// cmd/psqldef/psqldef.go's parseOptions: flags win, the config file
// fills in what flags leave unset.
func parseOptions(args []string) (config.Config, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[option...]"
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatal(err)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	fileCfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}

	flagCfg := config.Config{
		Endpoint: config.Endpoint{Addr: opts.Addr},
		Store:    config.Store{DSN: opts.DSN},
	}
	cfg := config.Merge(fileCfg, flagCfg)

	if opts.PreferredFormat != "" {
		cfg.Endpoint.PreferredFormat = opts.PreferredFormat
	}
	if cfg.Endpoint.PreferredFormat == "" && term.IsTerminal(int(syscall.Stdin)) {
		cfg.Endpoint.PreferredFormat = promptPreferredFormat()
	}
	return cfg, nil
}

// promptPreferredFormat interactively asks for a preferred result format
// when running on a real terminal, the way psqldef prompts for a
// password with --password-prompt; automated runs (piped stdin, CI)
// never hit this path. The answer, like the flag and the config value,
// is stored in cfg.Endpoint.PreferredFormat only: main does not pass it
// to endpoint.New, so the endpoint's per-request format negotiation
// does not use it.
func promptPreferredFormat() string {
	fmt.Print("Preferred result format (blank for default): ")
	var answer string
	fmt.Scanln(&answer)
	return answer
}

func main() {
	util.InitSlog()

	cfg, err := parseOptions(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.LogLevel != "" {
		os.Setenv("LOG_LEVEL", cfg.LogLevel)
		util.InitSlog()
	}

	dsn := cfg.Store.DSN
	if dsn == "" {
		dsn = "tinygraph.db"
	}
	st, err := sqlitestore.Open(dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	ns := nsmap.New()
	eng := update.New(st)
	ep := endpoint.New(st, eng, ns)

	addr := cfg.Endpoint.Addr
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: ep}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("tinygraphd listening", "addr", addr, "dsn", dsn)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
