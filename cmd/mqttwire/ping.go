// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func pingCmd(a *app) *cobra.Command {
	var (
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Measure PINGREQ round trips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				if i > 0 {
					select {
					case <-time.After(interval):
					case <-ctx.Done():
						return nil
					}
				}
				start := time.Now()
				if err := c.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintf(out, "pong from %s: seq=%d time=%s\n", a.cfg.Client.Broker, i+1, time.Since(start).Round(time.Microsecond))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of pings")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Wait between pings")
	return cmd
}
