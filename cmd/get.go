package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/conftree/internal/loader"
)

var getFile string

func init() {
	getCmd.Flags().StringVarP(&getFile, "file", "f", "", "configuration file to read")
	_ = getCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the values a key selects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadModel(getFile)
		if err != nil {
			return err
		}
		resolver := newResolver()
		handler := m.NodeHandler()

		results := resolver.ResolveKey(handler.RootNode(), args[0], handler)
		if len(results) == 0 {
			return fmt.Errorf("key %q not found", args[0])
		}
		for _, res := range results {
			if v := res.Value(); v != nil {
				fmt.Println(v)
			} else {
				// Structural node without a value: print its subtree.
				fmt.Print(string(loader.DumpJSON(res.Node())))
				fmt.Println()
			}
		}
		return nil
	},
}
