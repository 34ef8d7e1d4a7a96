package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var (
	setFile string
	setOut  string
)

func init() {
	setCmd.Flags().StringVarP(&setFile, "file", "f", "", "configuration file to edit")
	setCmd.Flags().StringVarP(&setOut, "output", "o", "", "write the result here instead of overwriting the input")
	_ = setCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(setCmd)
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key to a value and write the file back",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadModel(setFile)
		if err != nil {
			return err
		}
		resolver := newResolver()
		if err := m.SetProperty(args[0], resolver, parseScalar(args[1])); err != nil {
			return err
		}

		out := setOut
		if out == "" {
			out = setFile
		}
		abs, err := absPath(out)
		if err != nil {
			return err
		}
		return newLoader().Save(abs, m.RootNode())
	},
}

// parseScalar interprets a CLI value argument as bool, int or float before
// falling back to a string.
func parseScalar(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
