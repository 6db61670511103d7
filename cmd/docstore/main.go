/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/suparena/docstore"
	"github.com/suparena/docstore/config"
	"github.com/suparena/docstore/logging"
	"github.com/suparena/docstore/metrics"
	"github.com/suparena/docstore/processor"
	"github.com/suparena/docstore/storagemodels"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "docstore",
		Short:         "Document store data-access tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml); DOCSTORE_* variables override it")

	root.AddCommand(
		newVersionCmd(),
		newCapabilitiesCmd(&configPath),
		newRemoveCmd(&configPath),
		newCodegenCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := docstore.GetVersionInfo()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "docstore version %s\n", info.Version)
			fmt.Fprintf(w, "Git commit: %s\n", info.GitCommit)
			fmt.Fprintf(w, "Build date: %s\n", info.BuildDate)
			fmt.Fprintf(w, "Go version: %s\n", info.GoVersion)
		},
	}
}

func newCapabilitiesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Print the capabilities the configured cluster advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer s.close()

			for _, c := range s.template.Capabilities().List() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newRemoveCmd(configPath *string) *cobra.Command {
	var (
		alias     string
		where     []string
		returning string
		scope     string
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove every document of a type that matches the filters",
		Example: `  docstore remove --type user --where city=Lisbon
  docstore remove --type place --where rating=5 --returning document`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			predicate, err := parseWhere(where)
			if err != nil {
				return err
			}
			mode, err := parseReturning(returning)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer s.close()

			t := s.template
			if scope != "" {
				if t, err = t.WithScope(scope); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.QueryTimeout)
			defer cancel()

			results, err := docstore.RemoveByAlias(t, alias).
				Matching(storagemodels.NewQuery().Matching(predicate)).
				WithReturning(mode).
				All(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range results {
				line := map[string]any{"id": r.ID, "cas": r.Cas}
				if r.HasContent() {
					line["content"] = r.Content
				}
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "removed %d document(s)\n", len(results))
			s.reportMetrics(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.Flags().StringVarP(&alias, "type", "t", "", "entity alias stored under the type key")
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "field=value filter; repeat to combine with AND")
	cmd.Flags().StringVar(&returning, "returning", "meta", "meta or document")
	cmd.Flags().StringVar(&scope, "scope", "", "scope to use instead of the configured one")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newCodegenCmd() *cobra.Command {
	var in, out, pkg string

	cmd := &cobra.Command{
		Use:   "codegen",
		Short: "Generate entity registrations from a YAML mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := processor.Run(in, out, pkg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "file", "f", "entities.yaml", "entity mapping")
	cmd.Flags().StringVarP(&out, "output", "o", "zz_generated_entities.go", "generated file")
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "package name, overriding the mapping")
	return cmd
}

// parseWhere turns field=value pairs into a conjunction. Values that parse as
// JSON (numbers, booleans, null) keep their type; anything else is a string.
func parseWhere(pairs []string) (storagemodels.Predicate, error) {
	terms := make([]storagemodels.Predicate, 0, len(pairs))
	for _, pair := range pairs {
		field, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid --where %q, expected field=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		terms = append(terms, storagemodels.Where(strings.TrimSpace(field)).Eq(value))
	}
	return storagemodels.And(terms...), nil
}

func parseReturning(s string) (storagemodels.ReturningMode, error) {
	switch strings.ToLower(s) {
	case "", "meta":
		return storagemodels.ReturningMeta, nil
	case "document", "doc":
		return storagemodels.ReturningDocument, nil
	}
	return 0, fmt.Errorf("invalid --returning %q, expected meta or document", s)
}

// session is an opened cluster with a template on the configured bucket.
type session struct {
	cfg      *config.Config
	template *docstore.Template
	registry *prometheus.Registry
}

func openSession(ctx context.Context, configPath string) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(os.Stderr)
	logging.InitLogger(logger)

	cluster, err := config.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	factory, err := docstore.NewScopedClientFactory(ctx, cluster, cfg.Bucket, cfg.Scope)
	if err != nil {
		_ = cluster.Close(ctx)
		return nil, err
	}

	opts := []docstore.TemplateOption{
		docstore.WithTypeKey(cfg.TypeKey),
		docstore.WithLogger(logger),
	}
	s := &session{cfg: cfg}
	if cfg.MetricsEnabled {
		s.registry = prometheus.NewRegistry()
		opts = append(opts, docstore.WithMetrics(metrics.New(s.registry)))
	}

	s.template, err = docstore.NewTemplate(ctx, factory, opts...)
	if err != nil {
		_ = factory.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) close() {
	_ = s.template.Factory().Close(context.Background())
}

// reportMetrics prints the collected counters when metrics are enabled.
func (s *session) reportMetrics(w io.Writer) {
	if s.registry == nil {
		return
	}
	families, err := s.registry.Gather()
	if err != nil {
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				labels := make([]string, 0, len(m.GetLabel()))
				for _, l := range m.GetLabel() {
					labels = append(labels, l.GetName()+"="+l.GetValue())
				}
				lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), c.GetValue()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
