//go:generate go run ./internal/tools/configgen -o config.example.yaml -force

// Package ailimit reports whether claude, gemini and z.ai accounts are
// currently rate limited. The command lives in cmd/ailimit.
package ailimit
