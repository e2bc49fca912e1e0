package manifest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/toolchest-dev/toolchest/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser parses Lua tool manifests with platform information injected.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a manifest parser using the given platform detector.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile parses the manifest at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a manifest from a string. Useful for tests and
// generated manifests.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Manifest, error) {
	L := newSandboxedVM()
	defer L.Close()

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractManifest(L)
}

// ParseError is a manifest parsing error with a user-facing message and the
// raw Lua detail.
type ParseError struct {
	Message string
	Detail  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// FormatError formats a ParseError for display. Verbose mode includes the
// full Lua traceback; otherwise it is trimmed.
func FormatError(err error, verbose bool) string {
	parseErr, ok := err.(*ParseError)
	if !ok {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}

// extractManifest pulls the `toolchest` global table out of the Lua state.
func extractManifest(L *lua.LState) (*Manifest, error) {
	root := L.GetGlobal("toolchest")
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'toolchest' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}

	m := &Manifest{Tools: map[string]Tool{}}

	if toolsVal := root.(*lua.LTable).RawGetString("tools"); toolsVal.Type() == lua.LTTable {
		toolsVal.(*lua.LTable).ForEach(func(key, value lua.LValue) {
			// Entries disabled by platform conditionals come through as nil.
			if key.Type() != lua.LTString || value.Type() != lua.LTTable {
				return
			}
			m.Tools[key.String()] = extractTool(key.String(), value.(*lua.LTable))
		})
	}

	if err := m.Validate(); err != nil {
		return nil, &ParseError{
			Message: "manifest validation failed",
			Detail:  err.Error(),
		}
	}

	return m, nil
}

func extractTool(name string, table *lua.LTable) Tool {
	tool := Tool{Name: name}

	if v := table.RawGetString("url"); v.Type() == lua.LTString {
		tool.URL = v.String()
	}
	if v := table.RawGetString("subdir"); v.Type() == lua.LTString {
		tool.Subdir = v.String()
	}
	if v := table.RawGetString("kind"); v.Type() == lua.LTString {
		tool.Kind = v.String()
	}
	if v := table.RawGetString("signature"); v.Type() == lua.LTString {
		tool.Signature = v.String()
	}

	return tool
}
