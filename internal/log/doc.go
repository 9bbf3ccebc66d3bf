// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Removal of credentials and session parameters from logged URLs
//   - Configurable log levels with verbose mode support
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (bearer tokens, JWTs, keys)
//   - Userinfo and session/token query parameters in URL attributes
//
// Storefront URLs frequently embed tracking or session parameters, and the
// crawler logs every URL it visits at debug level, so URL sanitization runs
// on every string attribute that looks like an http(s) URL.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("visiting",
//	    "url", "https://shop.example.com/p/1?sessionid=abc", // sessionid masked
//	)
//	slog.SetDefault(logger)
package log
