package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"

	"tvltracker/internal/cache"
	"tvltracker/internal/config"
	"tvltracker/internal/defillama"
	"tvltracker/internal/protocols"
	"tvltracker/internal/providers"
	"tvltracker/internal/render"
	"tvltracker/internal/subgraph"
	"tvltracker/internal/tracker"
	"tvltracker/internal/tvl"
)

// allProtocols is the --protocol value that sweeps the whole catalog.
const allProtocols = "all"

type cliOptions struct {
	protocol  string
	supported bool
	chain     string
	pool      string
	provider  string
	output    string
	noCache   bool
}

func parseFlags(args []string) (*cliOptions, error) {
	opts := &cliOptions{}

	flags := pflag.NewFlagSet("tvltracker", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVarP(&opts.protocol, "protocol", "p", "", `protocol to track, or "all" for every supported protocol`)
	flags.BoolVarP(&opts.supported, "supported", "s", false, "list all supported protocols")
	flags.StringVar(&opts.chain, "chain", "", "filter results to one chain (e.g. sonic)")
	flags.StringVar(&opts.pool, "pool", "", "filter results to one pool label (e.g. S-USDC.e)")
	flags.StringVar(&opts.provider, "provider", "", "override the protocol's default data provider")
	flags.StringVarP(&opts.output, "output", "o", "table", "output format: table, json or csv")
	flags.BoolVar(&opts.noCache, "no-cache", false, "bypass the response cache")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if opts.supported && opts.protocol != "" {
		return nil, errors.New("--protocol and --supported are mutually exclusive")
	}
	if !opts.supported && opts.protocol == "" {
		return nil, errors.New("one of --protocol or --supported is required")
	}

	return opts, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	format, err := render.ParseFormat(opts.output)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Register the protocol catalog
	protocolReg := protocols.NewRegistry()
	for _, desc := range protocols.Defaults() {
		if err := protocolReg.Register(desc); err != nil {
			return fmt.Errorf("registering protocol catalog: %w", err)
		}
	}

	// Register the data providers
	providerReg := providers.NewRegistry()
	for _, p := range []tvl.Provider{
		defillama.New(defillama.NewClient(cfg.DefiLlamaBaseURL, cfg.DefiLlamaYieldsURL, cfg.RequestTimeout())),
		subgraph.NewKingdom(cfg.KingdomSubgraphURL, cfg.RequestTimeout()),
		subgraph.NewSwapX(cfg.SwapXSubgraphURL, cfg.GraphAPIKey, cfg.RequestTimeout()),
	} {
		if err := providerReg.Register(p); err != nil {
			return fmt.Errorf("registering providers: %w", err)
		}
	}

	if opts.supported {
		printSupported(os.Stdout, protocolReg)
		return nil
	}

	// Create context with cancellation so an interrupt aborts in-flight fetches
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	tr := tracker.New(
		protocolReg,
		providerReg,
		cache.New(cfg.CacheTTL(), clockwork.NewRealClock()),
		tracker.Options{Retries: cfg.FetchRetries, Backoff: cfg.RetryBackoff()},
	)

	query := tracker.Query{
		Chain:    opts.chain,
		Pool:     opts.pool,
		Provider: opts.provider,
		NoCache:  opts.noCache,
	}

	var records []tvl.Record
	if strings.EqualFold(opts.protocol, allProtocols) {
		// Per-protocol failures are reported but do not abort the sweep.
		var errs []error
		records, errs = tr.FetchAll(ctx, query)
		for _, fetchErr := range errs {
			fmt.Fprintf(os.Stderr, "Error: %v\n", fetchErr)
		}
	} else {
		query.Protocol = opts.protocol
		records, err = tr.FetchTVL(ctx, query)
		if err != nil {
			var unknownProto *tvl.UnknownProtocolError
			if errors.As(err, &unknownProto) {
				return fmt.Errorf("%w (use --supported to list available protocols)", err)
			}
			var unknownProv *tvl.UnknownProviderError
			if errors.As(err, &unknownProv) {
				return fmt.Errorf("%w (available providers: %s)", err, strings.Join(providerReg.Names(), ", "))
			}
			return err
		}
	}

	return render.Render(os.Stdout, records, format)
}

func printSupported(w io.Writer, reg *protocols.Registry) {
	fmt.Fprintln(w, "Supported DeFi Protocols:")
	for _, desc := range reg.All() {
		chains := "all"
		if len(desc.Chains) > 0 {
			chains = strings.Join(desc.Chains, ", ")
		}
		fmt.Fprintf(w, "  - %s (provider: %s, chains: %s)\n", desc.Name, desc.Provider, chains)
	}
}
