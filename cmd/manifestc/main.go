// Package main is the entry point for the manifestc compiler CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/compiler"
	"github.com/lemonberrylabs/manifestc/pkg/logging"
	"github.com/lemonberrylabs/manifestc/pkg/runtime"
	"github.com/lemonberrylabs/manifestc/pkg/types"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "manifestc",
	Short: "Compiler and evaluator for the manifest language",
}

var compileCmd = &cobra.Command{
	Use:   "compile [manifest ...]",
	Short: "Compile manifests into a catalog",
	Args:  cobra.MinimumNArgs(0),
	RunE:  runCompile,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Evaluate manifest expressions interactively",
	RunE:  runRepl,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("manifestc version {{.Version}}\n")

	compileCmd.Flags().String("settings", "", "YAML settings file (env MANIFESTC_SETTINGS)")
	compileCmd.Flags().String("facts", "", "YAML facts file (env MANIFESTC_FACTS)")
	compileCmd.Flags().String("node", "", "node name to compile for (default hostname)")
	compileCmd.Flags().String("format", "json", "catalog output format: json or yaml")
	compileCmd.Flags().String("log-level", "notice", "minimum diagnostic level")
	compileCmd.Flags().String("output", "", "write the catalog to a file instead of stdout")

	replCmd.Flags().String("facts", "", "YAML facts file")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(replCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runCompile(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	settings := &compiler.Settings{}
	settingsPath := envOrDefault("MANIFESTC_SETTINGS", "")
	if v, _ := cmd.Flags().GetString("settings"); v != "" {
		settingsPath = v
	}
	if settingsPath != "" {
		loaded, err := compiler.LoadSettings(settingsPath)
		if err != nil {
			return err
		}
		settings = loaded
	}
	settings.Manifests = append(settings.Manifests, args...)
	if len(settings.Manifests) == 0 {
		return fmt.Errorf("no manifests given: pass manifest paths or a settings file")
	}

	if v, _ := cmd.Flags().GetString("node"); v != "" {
		settings.NodeName = v
	}
	if settings.NodeName == "" {
		hostname, err := os.Hostname()
		if err == nil {
			settings.NodeName = hostname
		}
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		settings.LogLevel = v
	}

	facts := compiler.NewFacts()
	factsPath := envOrDefault("MANIFESTC_FACTS", "")
	if v, _ := cmd.Flags().GetString("facts"); v != "" {
		factsPath = v
	}
	if factsPath != "" {
		loaded, err := compiler.LoadFacts(factsPath)
		if err != nil {
			return err
		}
		facts = loaded
	}

	logger := &logging.SlogLogger{
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
		MinLevel: logging.ParseLevel(settings.LogLevel),
	}
	ctx := logging.WithLogger(context.Background(), logger)

	node := compiler.NewNode(settings, facts, nil)
	cat, err := node.Compile(ctx)
	if err != nil {
		return fmt.Errorf("compilation failed")
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	format, _ := cmd.Flags().GetString("format")
	return writeCatalog(out, cat, settings.NodeName, format)
}

// catalogDocument is the serialized form of a compiled catalog.
type catalogDocument struct {
	Name      string             `json:"name" yaml:"name"`
	Resources []resourceDocument `json:"resources" yaml:"resources"`
	Edges     []edgeDocument     `json:"edges" yaml:"edges"`
}

type resourceDocument struct {
	Type       string         `json:"type" yaml:"type"`
	Title      string         `json:"title" yaml:"title"`
	Status     string         `json:"status" yaml:"status"`
	File       string         `json:"file,omitempty" yaml:"file,omitempty"`
	Line       int            `json:"line,omitempty" yaml:"line,omitempty"`
	Tags       []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

type edgeDocument struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Kind   string `json:"kind" yaml:"kind"`
}

func writeCatalog(out io.Writer, cat *catalog.Catalog, name, format string) error {
	doc := catalogDocument{Name: name}
	cat.Each(func(r *catalog.Resource) bool {
		rd := resourceDocument{
			Type:   r.Type.DisplayName(),
			Title:  r.Type.Title,
			Status: r.Status.String(),
			File:   r.Path,
			Line:   r.Line,
			Tags:   r.Tags,
		}
		r.Attributes.Each(func(attr string, value types.Value) bool {
			if rd.Parameters == nil {
				rd.Parameters = make(map[string]any)
			}
			rd.Parameters[attr] = value.ToGo()
			return true
		})
		doc.Resources = append(doc.Resources, rd)
		return true
	})
	for _, edge := range cat.Edges() {
		doc.Edges = append(doc.Edges, edgeDocument{
			Source: edge.Source.String(),
			Target: edge.Target.String(),
			Kind:   edge.Kind.String(),
		})
	}

	switch strings.ToLower(format) {
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(doc)
	default:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	}
}

func runRepl(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	facts := compiler.NewFacts()
	if path, _ := cmd.Flags().GetString("facts"); path != "" {
		loaded, err := compiler.LoadFacts(path)
		if err != nil {
			return err
		}
		facts = loaded
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	session := runtime.NewSession(facts, &logging.SlogLogger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	})

	fmt.Println("manifestc repl — enter expressions, ctrl-d to exit")
	for {
		input, err := line.Prompt(">> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		value, err := session.Evaluate(input)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		fmt.Println(value)
	}
	return nil
}
