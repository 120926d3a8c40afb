package bob

import (
	"github.com/fogfish/opts"

	"github.com/HuyNguyen260398/bob/internal/broker"
	"github.com/HuyNguyen260398/bob/internal/threadstore"
	"github.com/HuyNguyen260398/bob/provider"
	"github.com/HuyNguyen260398/bob/tool"
	"github.com/HuyNguyen260398/bob/tool/builtin"
)

// Settings collects the injectable collaborators of an agent. Anything
// left unset gets a default in New.
type Settings struct {
	Provider provider.Provider
	Tools    []tool.Definition
	Store    threadstore.Store
	Broker   broker.Broker
	Notes    builtin.NoteStore
}

// Option configures an agent at construction time.
type Option = opts.Option[Settings]

// WithProvider replaces the default OpenAI-backed completion provider.
var WithProvider = opts.ForName[Settings, provider.Provider]("Provider")

// WithStore replaces the default in-memory thread store.
var WithStore = opts.ForName[Settings, threadstore.Store]("Store")

// WithBroker replaces the default in-process event broker.
var WithBroker = opts.ForName[Settings, broker.Broker]("Broker")

// WithNotes replaces the note store backing the save_note tool.
var WithNotes = opts.ForName[Settings, builtin.NoteStore]("Notes")

// WithTools replaces the default builtin tool set.
func WithTools(defs ...tool.Definition) Option {
	return opts.Type[Settings](func(s *Settings) error {
		s.Tools = defs
		return nil
	})
}
