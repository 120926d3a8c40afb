package tool

import (
	"context"
	"fmt"

	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/HuyNguyen260398/bob/pkg/stdx"
)

// Func is the signature every tool implements. The returned string is
// fed back to the model verbatim; a non-nil error is reported to the
// model as a tool failure rather than aborting the conversation.
type Func func(ctx context.Context, args Args) (string, error)

// Args wraps the JSON arguments the model supplied for a tool call.
type Args struct {
	raw gjson.Result
}

// ParseArgs parses a raw JSON argument payload.
func ParseArgs(data string) Args {
	return Args{raw: gjson.Parse(data)}
}

// Has reports whether the named argument was provided.
func (a Args) Has(name string) bool { return a.raw.Get(name).Exists() }

// String returns the named argument as a string, empty when absent.
func (a Args) String(name string) string { return a.raw.Get(name).String() }

// Float returns the named argument as a float64, zero when absent.
func (a Args) Float(name string) float64 { return a.raw.Get(name).Float() }

// Int returns the named argument as an int64, zero when absent.
func (a Args) Int(name string) int64 { return a.raw.Get(name).Int() }

// Raw returns the underlying JSON document.
func (a Args) Raw() gjson.Result { return a.raw }

// Definition describes one callable tool: its name, the schema shown to
// the model, and the function that runs when the model invokes it.
type Definition struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Func        Func
}

// Option configures a tool definition.
type Option = opts.Option[Definition]

// Description sets the human-readable description shown to the model.
var Description = opts.ForName[Definition, string]("Description")

// Param adds a parameter of the given JSON schema type to the tool's
// schema. Use Required to mark it mandatory.
func Param(name, typ, description string) Option {
	return opts.Type[Definition](func(d *Definition) error {
		if d.Schema == nil {
			d.Schema = emptySchema()
		}
		d.Schema.Properties.Set(name, &jsonschema.Schema{
			Type:        typ,
			Description: description,
		})
		return nil
	})
}

// Enum adds a string parameter restricted to the given values.
func Enum(name, description string, values ...string) Option {
	return opts.Type[Definition](func(d *Definition) error {
		if d.Schema == nil {
			d.Schema = emptySchema()
		}
		enum := make([]any, len(values))
		for i, v := range values {
			enum[i] = v
		}
		d.Schema.Properties.Set(name, &jsonschema.Schema{
			Type:        "string",
			Description: description,
			Enum:        enum,
		})
		return nil
	})
}

// Required marks the named parameters as mandatory. Invocations missing
// any of them are rejected before the tool function runs.
func Required(names ...string) Option {
	return opts.Type[Definition](func(d *Definition) error {
		if d.Schema == nil {
			d.Schema = emptySchema()
		}
		d.Schema.Required = append(d.Schema.Required, names...)
		return nil
	})
}

func emptySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
}

// New builds a tool definition. The name must be non-empty and the
// function non-nil.
func New(name string, fn Func, options ...Option) (Definition, error) {
	if name == "" {
		return Definition{}, fmt.Errorf("tool: name is required")
	}
	if fn == nil {
		return Definition{}, fmt.Errorf("tool %q: function is required", name)
	}

	def := Definition{Name: name, Func: fn, Schema: emptySchema()}
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Must is like New but panics on error. Intended for package-level tool
// declarations where a bad definition is a programming mistake.
func Must(name string, fn Func, options ...Option) Definition {
	return stdx.Must1(New(name, fn, options...))
}

// Validate checks the supplied arguments against the tool's schema.
// Only presence of required parameters is enforced; type coercion is
// left to the tool function via Args accessors.
func (d Definition) Validate(args Args) error {
	if d.Schema == nil {
		return nil
	}
	for _, name := range d.Schema.Required {
		if !args.Has(name) {
			return fmt.Errorf("tool %q: missing required argument %q", d.Name, name)
		}
	}
	return nil
}
