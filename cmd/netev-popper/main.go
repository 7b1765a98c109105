// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/errs/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/structpb"

	"storj.io/netev"
	"storj.io/netev/metrics"
	"storj.io/netev/pb"
	"storj.io/netev/utils"
)

// Config is assembled from flags, NETEV_* environment variables and an
// optional netev-popper config file.
type Config struct {
	Listen         string
	Codec          string
	BufferSize     int
	IdleBackoff    time.Duration
	RequestTimeout time.Duration
	PollInterval   time.Duration
	MetricsAddr    string
	Debug          bool
}

func main() {
	c := cobra.Command{
		Use:   "netev-popper",
		Short: "Listen for UDP datagrams and log everything popped off the queue",
	}
	_ = c.Flags().StringP("listen", "l", "localhost:8000", "UDP host:port to listen on")
	_ = c.Flags().StringP("codec", "c", "pico", "payload codec: raw, json, proto or pico, optionally with a +zlib suffix")
	_ = c.Flags().Int("buffer-size", netev.DefaultBufferSize, "receive buffer capacity, longer datagrams are truncated")
	_ = c.Flags().Duration("idle-backoff", netev.DefaultIdleBackoff, "longest pause between socket polls when idle, negative to busy poll")
	_ = c.Flags().Duration("request-timeout", 0, "bound on a single pop round trip, 0 to wait indefinitely")
	_ = c.Flags().Duration("poll-interval", 10*time.Millisecond, "pause after the queue was found empty")
	_ = c.Flags().String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
	_ = c.Flags().Bool("debug", false, "enable debug logging")

	viper.SetConfigName("netev-popper")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("NETEV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	err := viper.BindPFlags(c.Flags())
	if err != nil {
		panic(err)
	}

	c.RunE = func(cmd *cobra.Command, args []string) error {
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
		return run(context.Background(), Config{
			Listen:         viper.GetString("listen"),
			Codec:          viper.GetString("codec"),
			BufferSize:     viper.GetInt("buffer-size"),
			IdleBackoff:    viper.GetDuration("idle-backoff"),
			RequestTimeout: viper.GetDuration("request-timeout"),
			PollInterval:   viper.GetDuration("poll-interval"),
			MetricsAddr:    viper.GetString("metrics-addr"),
			Debug:          viper.GetBool("debug"),
		})
	}

	err = c.Execute()
	if err != nil {
		log.Fatalf("%++v", err)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg Config) (err error) {
	log, err := newLogger(cfg.Debug)
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { _ = log.Sync() }()

	pop, codec, err := popperFor(cfg.Codec, log)
	if err != nil {
		return err
	}

	ctx, done := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer done()

	log.Info("starting", zap.String("address", cfg.Listen), zap.String("codec", cfg.Codec))
	popper, err := netev.Bind(ctx, cfg.Listen, netev.Config{
		BufferSize:     cfg.BufferSize,
		IdleBackoff:    cfg.IdleBackoff,
		RequestTimeout: cfg.RequestTimeout,
		Codec:          codec,
		Log:            log.Named("listener"),
	})
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() {
		if closeErr := popper.Close(); err == nil {
			err = closeErr
		}
	}()

	group, ctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.NewPrometheus(monkit.Default))
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		group.Go(func() error {
			log.Info("serving metrics", zap.String("address", cfg.MetricsAddr))
			err := server.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return errs.Wrap(err)
		})
		group.Go(func() error {
			<-ctx.Done()
			return server.Close()
		})
	}

	ticker := utils.NewJitteredTicker(cfg.PollInterval)
	group.Go(func() error {
		ticker.Run(ctx)
		return nil
	})

	group.Go(func() error {
		for {
			found, err := pop(ctx, popper)
			switch {
			case netev.DecodeError.Has(err), netev.ProtocolError.Has(err):
				log.Warn("pop failed", zap.Error(err))
				continue
			case err != nil:
				if ctx.Err() != nil {
					return nil
				}
				return errs.Wrap(err)
			case found:
				continue
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	<-ctx.Done()
	log.Info("shutting down")
	return group.Wait()
}

// popFunc pops at most one value from the popper and logs it.
type popFunc func(ctx context.Context, popper *netev.Popper) (found bool, err error)

func popperFor(name string, log *zap.Logger) (popFunc, netev.Codec, error) {
	if name == "raw" {
		return func(ctx context.Context, popper *netev.Popper) (bool, error) {
			packet, err := popper.TryNext(ctx)
			if err != nil || packet == nil {
				return false, err
			}
			log.Info("packet",
				zap.Stringer("source", packet.Source),
				zap.Binary("payload", packet.Payload),
				zap.Bool("truncated", packet.Truncated))
			return true, nil
		}, nil, nil
	}

	codec, err := netev.CodecByName(name)
	if err != nil {
		return nil, nil, err
	}

	base, _ := strings.CutSuffix(name, "+zlib")
	switch base {
	case "json":
		return logged[map[string]any](log, func(v *map[string]any) []zap.Field {
			return []zap.Field{zap.Any("value", *v)}
		}), codec, nil
	case "proto", "protobuf":
		return logged[structpb.Struct](log, structFields), codec, nil
	default:
		return logged[pb.Note](log, noteFields), codec, nil
	}
}

func logged[T any](log *zap.Logger, fields func(*T) []zap.Field) popFunc {
	return func(ctx context.Context, popper *netev.Popper) (bool, error) {
		v, err := netev.Pop[T](ctx, popper)
		if err != nil || v == nil {
			return false, err
		}
		log.Info("popped", fields(v)...)
		return true, nil
	}
}
