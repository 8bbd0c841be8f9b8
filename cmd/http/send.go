package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dietiestates/backend/internal/client"
	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send a message to a running server and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(addr, client.WithTimeout(timeout))

			reply, err := c.SendMessage(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server base URL (default: $DIETI_BASE_URL or "+client.DefaultBaseURL+")")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	return cmd
}
