// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"storj.io/netev/pb"
)

func noteFields(n *pb.Note) []zap.Field {
	return []zap.Field{
		zap.String("name", n.Name),
		zap.Int64("age", n.Age),
		zap.Time("sent_at", n.SentAt()),
		zap.Int("body", len(n.Body)),
	}
}

func structFields(s *structpb.Struct) []zap.Field {
	return []zap.Field{zap.Any("value", s.AsMap())}
}
