// Package config loads knowledgecore settings.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults (DefaultSettings)
//  2. config.yaml in the configuration directory (~/.config/knowledgecore by default,
//     or the directory passed with --config-path)
//  3. environment variables
//
// # Configuration File
//
//	gateway:
//	  host: 0.0.0.0
//	  port: 8000
//	logLevel: INFO
//	defaultProfile: personal
//	fleet:
//	  personal:
//	    url: http://heart-personal:31009
//	  work:
//	    url: http://heart-work:31009
//	    credential: "..."
//	backend:
//	  timeoutMs: 30000
//	  connectTimeoutMs: 10000
//	  maxRetries: 3
//	  retryDelayMs: 500
//	  batchDelayMs: 50
//
// # Environment
//
// FLEET_<PROFILE>_URL and MNEMONIC_<PROFILE> override a profile's address and
// credential. DEFAULT_PROFILE, LOG_LEVEL, DEBUG, GATEWAY_HOST, GATEWAY_PORT and the
// ANYTYPE_* transport variables override the matching settings.
//
// Credentials are held in Secret values, which render as [REDACTED] wherever they are
// printed, logged or serialized.
package config
