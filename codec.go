// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package netev

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"
	"google.golang.org/protobuf/proto"

	"storj.io/picobuf"
)

// Codec converts values to datagram payloads and back. A Pusher and the
// Popper it sends to must use the same codec.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	// JSON encodes any value json can represent.
	JSON Codec = jsonCodec{}
	// Proto encodes protobuf messages.
	Proto Codec = protoCodec{}
	// Pico encodes picobuf messages.
	Pico Codec = picoCodec{}
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type protoCodec struct{}

func (protoCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, Error.New("%T is not a protobuf message", v)
	}
	return proto.Marshal(m)
}

func (protoCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(proto.Message)
	if !ok {
		return Error.New("%T is not a protobuf message", v)
	}
	return proto.Unmarshal(data, m)
}

type picoCodec struct{}

func (picoCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(picobuf.Message)
	if !ok {
		return nil, Error.New("%T is not a picobuf message", v)
	}
	return picobuf.Marshal(m)
}

func (picoCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(picobuf.Message)
	if !ok {
		return Error.New("%T is not a picobuf message", v)
	}
	return picobuf.Unmarshal(data, m)
}

const (
	compressedMagic = "NZ"

	// maxDecompressed bounds how much a single payload may inflate to.
	maxDecompressed = 1 << 20
)

// Compressed wraps inner so that its output is zlib compressed and
// prefixed with a two byte magic number.
func Compressed(inner Codec) Codec {
	return Level(inner, zlib.BestCompression)
}

// Level is like Compressed with an explicit zlib compression level.
func Level(inner Codec, level int) Codec {
	return &compressedCodec{inner: inner, level: level}
}

type compressedCodec struct {
	inner Codec
	level int

	writers sync.Pool
}

func (c *compressedCodec) Marshal(v any) (_ []byte, err error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(compressedMagic) + len(data))
	buf.WriteString(compressedMagic)

	zl, _ := c.writers.Get().(*zlib.Writer)
	if zl == nil {
		zl, err = zlib.NewWriterLevel(&buf, c.level)
		if err != nil {
			return nil, Error.Wrap(err)
		}
	} else {
		zl.Reset(&buf)
	}
	defer c.writers.Put(zl)

	if _, err := zl.Write(data); err != nil {
		return nil, Error.Wrap(err)
	}
	if err := zl.Close(); err != nil {
		return nil, Error.Wrap(err)
	}
	return buf.Bytes(), nil
}

func (c *compressedCodec) Unmarshal(data []byte, v any) error {
	if len(data) < len(compressedMagic) || string(data[:len(compressedMagic)]) != compressedMagic {
		return Error.New("missing magic number")
	}

	zl, err := zlib.NewReader(bytes.NewReader(data[len(compressedMagic):]))
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { _ = zl.Close() }()

	raw, err := io.ReadAll(io.LimitReader(zl, maxDecompressed+1))
	if err != nil {
		return Error.Wrap(err)
	}
	if len(raw) > maxDecompressed {
		return Error.New("payload inflates past %d bytes", maxDecompressed)
	}
	return c.inner.Unmarshal(raw, v)
}

// CodecByName returns the codec called name: json, proto or pico. A
// "+zlib" suffix wraps it with Compressed.
func CodecByName(name string) (Codec, error) {
	base, compressed := strings.CutSuffix(name, "+zlib")

	var codec Codec
	switch base {
	case "json":
		codec = JSON
	case "proto", "protobuf":
		codec = Proto
	case "pico", "picobuf":
		codec = Pico
	default:
		return nil, Error.New("unknown codec %q", name)
	}

	if compressed {
		codec = Compressed(codec)
	}
	return codec, nil
}
