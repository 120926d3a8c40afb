// Package slogx provides slog attribute constructors shared by the library
// and the binaries, so log field names stay consistent across the codebase.
package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr with the key "error" and the error's message
// as value.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Stringer returns a slog.Attr rendering the value through its String
// method. Useful for uuids and other fmt.Stringer ids.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// Thread returns the standard attribute for a conversation thread id.
func Thread(id string) slog.Attr {
	return slog.String("thread_id", id)
}

// Node returns the standard attribute for a workflow node name.
func Node(name string) slog.Attr {
	return slog.String("node", name)
}
