// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/absmach/mqttwire/packets"
	"github.com/spf13/cobra"
)

// decodeCmd and encodeCmd work offline, so they skip the root setup.
func offline(cmd *cobra.Command, args []string) error {
	return nil
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode HEX...",
		Short: "Decode raw packets",
		Long: `Decode one or more concatenated MQTT packets given as hex and print
them. Whitespace between hex digits is ignored.`,
		Args:              cobra.MinimumNArgs(1),
		PersistentPreRunE: offline,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.Join(strings.Fields(strings.Join(args, " ")), ""))
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}

			out := cmd.OutOrStdout()
			r := bytes.NewReader(raw)
			for {
				p, err := packets.ReadPacket(r)
				if err != nil {
					if errors.Is(err, io.EOF) && r.Len() == 0 {
						return nil
					}
					return err
				}
				fmt.Fprintln(out, p)
			}
		},
	}
}

func encodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a packet and print it as hex",
	}
	cmd.AddCommand(
		encodeConnectCmd(),
		encodePublishCmd(),
		encodeSubscribeCmd(),
	)
	return cmd
}

func encodeConnectCmd() *cobra.Command {
	var (
		clientID  string
		username  string
		password  string
		keepAlive uint16
		clean     bool
	)

	cmd := &cobra.Command{
		Use:               "connect",
		Short:             "Encode CONNECT",
		Args:              cobra.NoArgs,
		PersistentPreRunE: offline,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &packets.Connect{
				ClientID:     clientID,
				CleanSession: clean,
				KeepAlive:    keepAlive,
			}
			if cmd.Flags().Changed("username") {
				p.Username = packets.Ptr(username)
			}
			if cmd.Flags().Changed("password") {
				p.Password = []byte(password)
			}
			return printHex(cmd, p)
		},
	}

	cmd.Flags().StringVar(&clientID, "id", "", "Client identifier")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "P", "", "Password")
	cmd.Flags().Uint16Var(&keepAlive, "keep-alive", 60, "Keep alive in seconds")
	cmd.Flags().BoolVar(&clean, "clean", true, "Clean session")
	return cmd
}

func encodePublishCmd() *cobra.Command {
	var (
		qos    uint8
		id     uint16
		retain bool
		dup    bool
	)

	cmd := &cobra.Command{
		Use:               "publish TOPIC PAYLOAD",
		Short:             "Encode PUBLISH",
		Args:              cobra.ExactArgs(2),
		PersistentPreRunE: offline,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &packets.Publish{
				Dup: dup,
				Message: packets.Message{
					Topic:   args[0],
					Payload: []byte(args[1]),
					QoS:     packets.QoS(qos),
					Retain:  retain,
				},
			}
			if qos > 0 {
				p.PacketID = packets.Ptr(packets.PacketID(id))
			}
			return printHex(cmd, p)
		},
	}

	cmd.Flags().Uint8VarP(&qos, "qos", "q", 0, "QoS level (0, 1 or 2)")
	cmd.Flags().Uint16Var(&id, "id", 1, "Packet identifier, used when QoS > 0")
	cmd.Flags().BoolVarP(&retain, "retain", "r", false, "Set the retain flag")
	cmd.Flags().BoolVar(&dup, "dup", false, "Set the dup flag")
	return cmd
}

func encodeSubscribeCmd() *cobra.Command {
	var (
		qos uint8
		id  uint16
	)

	cmd := &cobra.Command{
		Use:               "subscribe FILTER...",
		Short:             "Encode SUBSCRIBE",
		Args:              cobra.MinimumNArgs(1),
		PersistentPreRunE: offline,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &packets.Subscribe{ID: packets.PacketID(id)}
			for _, f := range args {
				p.Topics = append(p.Topics, packets.Subscription{Topic: f, QoS: packets.QoS(qos)})
			}
			return printHex(cmd, p)
		},
	}

	cmd.Flags().Uint8VarP(&qos, "qos", "q", 0, "Requested QoS for every filter")
	cmd.Flags().Uint16Var(&id, "id", 1, "Packet identifier")
	return cmd
}

func printHex(cmd *cobra.Command, p packets.Packet) error {
	b, err := packets.Encode(p)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(b))
	return nil
}
