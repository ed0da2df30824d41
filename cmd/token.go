package cmd

import (
	"fmt"

	"github.com/jmehdipour/qmail/internal/mailbox"
	"github.com/jmehdipour/qmail/internal/model"
	"github.com/jmehdipour/qmail/internal/serial"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect mailbox tokens",
}

var tokenDecodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Print the record carried by a mailbox token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := mailbox.DecodeToken(args[0])
		if err != nil {
			return fmt.Errorf("decode token: %w", err)
		}

		data, err := mailbox.Marshal(rec)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		if n, err := serial.Decode(rec.SerialNumber); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "# serial %s = %d\n", rec.SerialNumber, n)
		}
		if _, ok := model.ParseTier(rec.Class); !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "# unknown class %q\n", rec.Class)
		}
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenDecodeCmd)
}
