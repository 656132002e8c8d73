// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/vitalis/pkg/ident"
)

// Sender delivers a raw code to the owner of identifier.
// Implementations must not log or persist the code.
type Sender interface {
	Send(ctx context.Context, identifier string, identifierType ident.Type, code string) error
}

// LogSender records that a delivery would have happened. It never writes the code;
// pair it with code exposure when running locally.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a Sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs a masked recipient.
func (sender *LogSender) Send(ctx context.Context, identifier string, identifierType ident.Type, _ string) error {
	sender.logger.InfoContext(ctx, "otp_delivery_logged",
		slog.String("identifier", Mask(identifier)),
		slog.String("identifier_type", string(identifierType)),
	)
	return nil
}

// Mask hides most of an identifier for logs: "alice@example.com" becomes "a****@example.com"
// and "+84901234567" becomes "+84******567".
func Mask(identifier string) string {
	if local, domain, found := strings.Cut(identifier, "@"); found {
		if len(local) <= 1 {
			return "*@" + domain
		}
		return local[:1] + strings.Repeat("*", len(local)-1) + "@" + domain
	}

	if len(identifier) <= 6 {
		return strings.Repeat("*", len(identifier))
	}
	return identifier[:3] + strings.Repeat("*", len(identifier)-6) + identifier[len(identifier)-3:]
}
