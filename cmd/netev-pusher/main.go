// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/structpb"

	"storj.io/netev"
	"storj.io/netev/pb"
)

func main() {
	c := cobra.Command{
		Use:   "netev-pusher NAME AGE",
		Short: "Send test notes to a netev popper",
		Args:  cobra.ExactArgs(2),
	}
	local := c.Flags().StringP("local", "l", "", "local UDP host:port to send from (default: ephemeral)")
	dest := c.Flags().StringP("destination", "d", "localhost:8000", "UDP host:port of the popper")
	codec := c.Flags().StringP("codec", "c", "pico", "payload codec: raw, json, proto or pico, optionally with a +zlib suffix")
	count := c.Flags().IntP("count", "n", 1, "number of notes to send")
	interval := c.Flags().Duration("interval", 0, "pause between notes")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		age, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid age")
		}
		return send(cmd.Context(), *local, *dest, *codec, args[0], age, *count, *interval)
	}

	err := c.Execute()
	if err != nil {
		log.Fatalf("%++v", err)
	}
}

func send(ctx context.Context, local, dest, codecName, name string, age int64, count int, interval time.Duration) error {
	var codec netev.Codec
	if codecName != "raw" {
		var err error
		codec, err = netev.CodecByName(codecName)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	pusher, err := netev.BindPusher(local, dest, codec)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() { _ = pusher.Close() }()

	for i := 0; i < count; i++ {
		if i > 0 && interval > 0 {
			time.Sleep(interval)
		}

		if codecName == "raw" {
			err = pusher.PushBytes(ctx, []byte(name))
		} else {
			var v any
			v, err = noteFor(codecName, name, age)
			if err == nil {
				err = pusher.Push(ctx, v)
			}
		}
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// noteFor builds the value the popper expects for the given codec.
func noteFor(codecName, name string, age int64) (any, error) {
	now := time.Now()
	switch codecName {
	case "json", "json+zlib":
		return map[string]any{"name": name, "age": age, "sent_at": now}, nil
	case "proto", "protobuf", "proto+zlib", "protobuf+zlib":
		return structpb.NewStruct(map[string]any{
			"name":    name,
			"age":     float64(age),
			"sent_at": now.Format(time.RFC3339Nano),
		})
	default:
		return &pb.Note{Name: name, Age: age, SentAtNs: pb.AsNanos(now)}, nil
	}
}
