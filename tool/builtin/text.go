package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/HuyNguyen260398/bob/tool"
)

var titleCaser = cases.Title(language.English)

// FormatText transforms text into the requested case style.
func FormatText() tool.Definition {
	return tool.Must("format_text", func(_ context.Context, args tool.Args) (string, error) {
		text := args.String("text")
		switch style := args.String("style"); style {
		case "upper":
			return strings.ToUpper(text), nil
		case "lower":
			return strings.ToLower(text), nil
		case "title":
			return titleCaser.String(text), nil
		case "capitalize":
			if text == "" {
				return "", nil
			}
			lower := strings.ToLower(text)
			return strings.ToUpper(lower[:1]) + lower[1:], nil
		default:
			return "", fmt.Errorf("unknown style %q", style)
		}
	},
		tool.Description("Reformat text into a given case style."),
		tool.Param("text", "string", "the text to reformat"),
		tool.Enum("style", "the case style to apply", "upper", "lower", "title", "capitalize"),
		tool.Required("text", "style"),
	)
}

// SearchText counts case-insensitive occurrences of a pattern in text.
// The pattern is a regular expression.
func SearchText() tool.Definition {
	return tool.Must("search_text", func(_ context.Context, args tool.Args) (string, error) {
		re, err := regexp.Compile("(?i)" + args.String("pattern"))
		if err != nil {
			return "", fmt.Errorf("invalid pattern: %w", err)
		}
		count := len(re.FindAllStringIndex(args.String("text"), -1))
		return strconv.Itoa(count), nil
	},
		tool.Description("Count how often a pattern occurs in a text, ignoring case."),
		tool.Param("text", "string", "the text to search in"),
		tool.Param("pattern", "string", "the regular expression to count"),
		tool.Required("text", "pattern"),
	)
}
