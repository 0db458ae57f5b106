package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/aglyzov/partrie/epoch"
	"github.com/aglyzov/partrie/internal/wordsrc"
	"github.com/aglyzov/partrie/metrics"
	"github.com/aglyzov/partrie/partrie"
)

// demoWords is used when neither a words file nor a fake count is given.
var demoWords = []string{
	"the", "them", "code", "coder", "coding",
	"crap", "help", "heft", "apple", "hello",
	"like", "love", "life", "huge", "copy",
	"cookie", "zebra", "zappy", "king", "trie",
}

type runReport struct {
	Words   int           `json:"words" yaml:"words"`
	Workers int           `json:"workers" yaml:"workers"`
	Elapsed string        `json:"elapsed" yaml:"elapsed"`
	Missing []string      `json:"missing,omitempty" yaml:"missing,omitempty"`
	Stats   partrie.Stats `json:"stats" yaml:"stats"`
}

type findResult struct {
	Prefix  string   `json:"prefix" yaml:"prefix"`
	Matches []string `json:"matches" yaml:"matches"`
}

func newRunCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Insert every word concurrently and check that each one can be found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "Print the node graph after loading")

	return cmd
}

func newFindCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "find PREFIX...",
		Short: "Load the words and print every word starting with each prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return find(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}
}

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Print the documentation of the exported metrics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			header := `
# trierun Metrics

Each table below provides documentation for an exported metric.
`
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", header, metrics.GetDocumentation())
		},
	}
}

// session is a loaded trie together with its instrumentation.
type session struct {
	trie      *partrie.Trie[rune]
	collector *epoch.Collector
	words     []string
	elapsed   time.Duration
	server    *http.Server
}

func loadWords(opts *Options) ([]string, error) {
	switch {
	case opts.WordsFile != "":
		return wordsrc.Load(opts.WordsFile)
	case opts.FakeCount > 0:
		return wordsrc.Fake(opts.FakeCount, opts.Seed), nil
	default:
		return demoWords, nil
	}
}

func startSession(opts *Options) (*session, error) {
	if opts.Workers < 1 {
		return nil, errors.Errorf("invalid number of workers: %d", opts.Workers)
	}

	switch opts.Output {
	case "", "text", "json", "yaml":
	default:
		return nil, errors.Errorf("unknown output format %q", opts.Output)
	}

	words, err := loadWords(opts)
	if err != nil {
		return nil, err
	}

	var (
		reg = prometheus.NewRegistry()
		m   = metrics.New(reg)
		c   = epoch.NewCollector()
	)

	m.TrackCollector(c)

	server, err := startPromServer(&opts.Metrics, reg)
	if err != nil {
		return nil, err
	}

	s := &session{
		trie: partrie.New[rune](
			partrie.WithCollector(c),
			partrie.WithObserver(m),
			partrie.WithLogger(log.StandardLogger()),
			partrie.WithRootCapacity(opts.RootCapacity),
			partrie.WithNodeCapacity(opts.NodeCapacity),
		),
		collector: c,
		words:     words,
		server:    server,
	}

	var (
		parts = wordsrc.Split(words, opts.Workers, opts.Seed)
		wg    sync.WaitGroup
		start = time.Now()
	)

	for i, part := range parts {
		wg.Add(1)

		go func(i int, part []string) {
			defer wg.Done()

			for _, w := range part {
				s.trie.Insert(partrie.Runes(w))
			}

			log.WithFields(log.Fields{"worker": i, "words": len(part)}).Debug("worker done")
		}(i, part)
	}

	wg.Wait()

	s.elapsed = time.Since(start)
	s.collector.Collect()

	log.WithFields(log.Fields{
		"words":   len(words),
		"workers": opts.Workers,
		"elapsed": s.elapsed,
	}).Info("words loaded")

	return s, nil
}

// serve keeps the metrics endpoint up until ctx is cancelled.
func (s *session) serve(ctx context.Context) {
	if s.server == nil {
		return
	}

	log.WithField("addr", s.server.Addr).Info("serving metrics until interrupted")
	<-ctx.Done()
}

func (s *session) close() {
	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = s.server.Shutdown(ctx)
}

// startPromServer serves reg on /metrics when a port is configured.
func startPromServer(cfg *MetricsOptions, reg *prometheus.Registry) (*http.Server, error) {
	if cfg.Port == 0 {
		return nil, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%v", cfg.Address, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen for metrics")
	}

	log.Infof("Prometheus server: addr = %s", server.Addr)

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("error in http.Serve: %v", err)
		}
	}()

	return server, nil
}

func run(ctx context.Context, opts *Options, out io.Writer) error {
	s, err := startSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	rep := runReport{
		Words:   len(s.words),
		Workers: opts.Workers,
		Elapsed: s.elapsed.String(),
	}

	for _, w := range s.words {
		if !s.trie.Contains(partrie.Runes(w)) {
			rep.Missing = append(rep.Missing, w)
		}
	}

	rep.Stats = s.trie.Stats()

	err = writeOutput(out, opts.Output, rep, func(w io.Writer) {
		fmt.Fprintf(w, "words:        %d\n", rep.Words)
		fmt.Fprintf(w, "workers:      %d\n", rep.Workers)
		fmt.Fprintf(w, "elapsed:      %s\n", rep.Elapsed)
		fmt.Fprintf(w, "root:         %d/%d\n", rep.Stats.RootLen, rep.Stats.RootCap)
		fmt.Fprintf(w, "nodes:        %d\n", rep.Stats.Nodes)
		fmt.Fprintf(w, "root growths: %d\n", rep.Stats.RootGrowths)
		fmt.Fprintf(w, "node growths: %d\n", rep.Stats.NodeGrowths)
		fmt.Fprintf(w, "retired:      %d\n", rep.Stats.Retired)

		if opts.Dump {
			fmt.Fprintf(w, "\n%s", s.trie.String())
		}
	})
	if err != nil {
		return err
	}

	s.serve(ctx)

	if len(rep.Missing) != 0 {
		return errors.Errorf("%d of %d words not found", len(rep.Missing), rep.Words)
	}

	return nil
}

func find(ctx context.Context, opts *Options, prefixes []string, out io.Writer) error {
	s, err := startSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	results := make([]findResult, 0, len(prefixes))

	for _, prefix := range prefixes {
		found := s.trie.Find(partrie.Runes(prefix))

		log.WithFields(log.Fields{"prefix": prefix, "found": found.Len()}).Debug("searched")

		results = append(results, findResult{
			Prefix:  prefix,
			Matches: partrie.RuneStrings(found),
		})
	}

	err = writeOutput(out, opts.Output, results, func(w io.Writer) {
		for _, r := range results {
			fmt.Fprintf(w, "%s: %s\n", r.Prefix, strings.Join(r.Matches, " "))
		}
	})
	if err != nil {
		return err
	}

	s.serve(ctx)

	return nil
}

func writeOutput(out io.Writer, format string, v any, text func(io.Writer)) error {
	switch format {
	case "", "text":
		text(out)
		return nil
	case "json":
		b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode json")
		}
		_, err = fmt.Fprintf(out, "%s\n", b)
		return errors.WithStack(err)
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		_, err = out.Write(b)
		return errors.WithStack(err)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}
