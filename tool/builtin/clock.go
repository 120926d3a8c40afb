// Package builtin provides the standard tool set wired into a default
// agent: clock access, arithmetic, text utilities and note taking.
package builtin

import (
	"context"
	"time"

	"github.com/HuyNguyen260398/bob/tool"
)

// Clock abstracts time.Now so tests can pin the current moment.
type Clock func() time.Time

// CurrentTime reports the current time in HH:MM:SS form.
func CurrentTime(clock Clock) tool.Definition {
	if clock == nil {
		clock = time.Now
	}
	return tool.Must("current_time", func(context.Context, tool.Args) (string, error) {
		return clock().Format("15:04:05"), nil
	},
		tool.Description("Get the current time of day."),
	)
}

// CurrentDate reports today's date in YYYY-MM-DD form.
func CurrentDate(clock Clock) tool.Definition {
	if clock == nil {
		clock = time.Now
	}
	return tool.Must("current_date", func(context.Context, tool.Args) (string, error) {
		return clock().Format("2006-01-02"), nil
	},
		tool.Description("Get today's date."),
	)
}
