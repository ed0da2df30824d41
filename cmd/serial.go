package cmd

import (
	"fmt"

	"github.com/jmehdipour/qmail/internal/serial"
	"github.com/spf13/cobra"
)

var serialCmd = &cobra.Command{
	Use:   "serial",
	Short: "Convert serial numbers to and from base-32",
}

var serialEncodeCmd = &cobra.Command{
	Use:   "encode <decimal>",
	Short: "Encode a non-negative decimal integer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serial.EncodeString(args[0])
		if err != nil {
			return fmt.Errorf("%q: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	},
}

var serialDecodeCmd = &cobra.Command{
	Use:   "decode <serial>",
	Short: "Decode a base-32 serial",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := serial.Decode(args[0])
		if err != nil {
			return fmt.Errorf("%q: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func init() {
	serialCmd.AddCommand(serialEncodeCmd, serialDecodeCmd)
}
