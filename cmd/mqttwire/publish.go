// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/absmach/mqttwire/packets"
	"github.com/spf13/cobra"
)

// errDone stops Listen once enough messages arrived.
var errDone = errors.New("done")

func pubCmd(a *app) *cobra.Command {
	var (
		qos    uint8
		retain bool
		count  int
	)

	cmd := &cobra.Command{
		Use:   "pub TOPIC MESSAGE",
		Short: "Publish a message",
		Long: `Publish MESSAGE to TOPIC and wait for the acknowledgments its QoS
requires. Use --count to publish the same message several times.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			msg := packets.Message{
				Topic:   args[0],
				Payload: []byte(args[1]),
				QoS:     packets.QoS(qos),
				Retain:  retain,
			}
			for i := 0; i < count; i++ {
				if err := c.Publish(ctx, msg); err != nil {
					return fmt.Errorf("publish %d: %w", i+1, err)
				}
			}
			a.logger.Info("published", "topic", msg.Topic, "qos", qos, "count", count)
			return nil
		},
	}

	cmd.Flags().Uint8VarP(&qos, "qos", "q", 0, "QoS level (0, 1 or 2)")
	cmd.Flags().BoolVarP(&retain, "retain", "r", false, "Set the retain flag")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of messages to publish")
	return cmd
}

func subCmd(a *app) *cobra.Command {
	var (
		qos   uint8
		count int
	)

	cmd := &cobra.Command{
		Use:   "sub FILTER...",
		Short: "Subscribe and print messages",
		Long: `Subscribe to one or more topic filters and print every message as
"topic payload" until interrupted or --count messages arrive.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			subs := make([]packets.Subscription, len(args))
			for i, f := range args {
				subs[i] = packets.Subscription{Topic: f, QoS: packets.QoS(qos)}
			}
			if _, err := c.Subscribe(ctx, subs...); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			received := 0
			err = c.Listen(ctx, func(p packets.Packet) error {
				pub, ok := p.(*packets.Publish)
				if !ok {
					return nil
				}
				fmt.Fprintf(out, "%s %s\n", pub.Message.Topic, pub.Message.Payload)
				received++
				if count > 0 && received >= count {
					return errDone
				}
				return nil
			})
			if errors.Is(err, errDone) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().Uint8VarP(&qos, "qos", "q", 0, "Requested QoS level (0, 1 or 2)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many messages (0 = run until interrupted)")
	return cmd
}
