package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/conftree/internal/combine"
	"github.com/agentic-research/conftree/internal/loader"
	"github.com/agentic-research/conftree/internal/tree"
)

var (
	mergeMode string
	mergeOut  string
	mergeList []string
)

func init() {
	mergeCmd.Flags().StringVarP(&mergeMode, "mode", "m", "merge", "combination strategy: merge (first file wins) or union (keep everything)")
	mergeCmd.Flags().StringVarP(&mergeOut, "output", "o", "", "write the combined tree here instead of stdout")
	mergeCmd.Flags().StringSliceVarP(&mergeList, "list", "l", nil, "node names treated as lists (never combined)")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <first> <second>",
	Short: "Combine two configuration files into one tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var combiner combine.Combiner
		switch mergeMode {
		case "merge":
			combiner = combine.NewMergeCombiner()
		case "union":
			combiner = combine.NewUnionCombiner()
		default:
			return fmt.Errorf("unknown mode %q (want merge or union)", mergeMode)
		}
		for _, name := range mergeList {
			combiner.AddListNode(name)
		}

		ld := newLoader()
		first, err := loadTree(ld, args[0])
		if err != nil {
			return err
		}
		second, err := loadTree(ld, args[1])
		if err != nil {
			return err
		}

		combined := combiner.Combine(first, second)
		if mergeOut != "" {
			abs, err := absPath(mergeOut)
			if err != nil {
				return err
			}
			return ld.Save(abs, combined)
		}
		_, err = os.Stdout.Write(loader.DumpJSON(combined))
		fmt.Println()
		return err
	},
}

func loadTree(ld *loader.Loader, path string) (*tree.Node, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}
	return ld.Load(abs)
}
