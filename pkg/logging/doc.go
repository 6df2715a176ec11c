// Package logging provides the structured logging facade used across knowledgecore.
//
// It wraps Go's standard slog package behind subsystem-oriented helpers so that
// call sites stay short and uniform:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("FleetRouter", "Initialized client for profile %s", name)
//	logging.Warn("Reconciler", "Relation %q not found for type %q", rel, typ)
//	logging.Error("Gateway", err, "Failed to serve")
//
// Attributes passed through Event are filtered by a ReplaceAttr hook: any key that
// looks like a credential (mnemonic, secret, token, authorization, ...) is replaced
// with [REDACTED] before the record reaches the handler.
//
// InitForJSON selects a JSON handler, which the gateway uses when it runs as a
// long-lived service.
package logging
