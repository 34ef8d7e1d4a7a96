// Package cmd implements the conftree command line tool.
package cmd

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/conftree/internal/expr"
	"github.com/agentic-research/conftree/internal/loader"
	"github.com/agentic-research/conftree/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "conftree",
	Short: "Inspect, edit and combine hierarchical configuration files",
	Long: `conftree loads configuration files (JSON, YAML, TOML, HCL) into a
hierarchical node tree and lets you query and edit them with dotted key
expressions like "database.connection[@timeout]" or "servers.server(1).port".`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newLoader returns a loader over the host filesystem rooted at /.
func newLoader() *loader.Loader {
	return loader.New(osfs.New("/"))
}

// absPath normalizes a CLI path argument for the rooted filesystem.
func absPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '/' {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return wd + "/" + path, nil
}

// loadModel reads a configuration file into a fresh model.
func loadModel(path string) (*model.Model, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}
	root, err := newLoader().Load(abs)
	if err != nil {
		return nil, err
	}
	return model.NewModel(root), nil
}

// newResolver creates the key resolver used by all commands.
func newResolver() *model.DefaultResolver {
	return model.NewResolver(expr.NewEngine(expr.DefaultSymbols))
}
