package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/conftree/internal/watch"
)

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "quiet period before a change triggers a reload")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <file> <key>",
	Short: "Print a key's value whenever the file changes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, key := args[0], args[1]
		resolver := newResolver()

		printCurrent := func(path string) error {
			m, err := loadModel(path)
			if err != nil {
				return err
			}
			handler := m.NodeHandler()
			results := resolver.ResolveKey(handler.RootNode(), key, handler)
			if len(results) == 0 {
				fmt.Printf("%s: <unset>\n", key)
				return nil
			}
			for _, res := range results {
				fmt.Printf("%s = %v\n", key, res.Value())
			}
			return nil
		}

		if err := printCurrent(file); err != nil {
			return err
		}

		w, err := watch.New(printCurrent, watch.WithDebounce(watchDebounce))
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Add(file); err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}
