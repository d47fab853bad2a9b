// Package capture turns capture documents produced by a page-capture collaborator
// into report inputs. Documents are untrusted: values of the wrong type are coerced
// where possible and otherwise treated as absent.
package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

// Format selects the document syntax.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, "auto":
		return FormatAuto, nil
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (want json or yaml)", s))
	}
}

// Document is a decoded capture: the page context, the reporter's input, and the
// tracker metadata to file it with.
type Document struct {
	Context       report.CapturedContext `json:"context"`
	Input         report.UserInput       `json:"input"`
	Labels        []string               `json:"labels,omitempty"`
	Milestone     *int                   `json:"milestone,omitempty"`
	ScreenshotURL *string                `json:"screenshot_url,omitempty"`
}

// Decode parses a JSON or YAML capture document. It accepts either a wrapper object
// with context, input, labels, milestone and screenshot_url keys, or a bare context
// object. Only syntax errors and non-object roots are rejected.
func Decode(data []byte, format Format) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.NewInvalidRequest("capture document is empty")
	}
	if format == FormatAuto {
		format = FormatYAML
		if trimmed[0] == '{' || trimmed[0] == '[' {
			format = FormatJSON
		}
	}

	var raw any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid JSON capture: %v", err))
		}
	case FormatYAML:
		if err := yaml.Unmarshal(trimmed, &raw); err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid YAML capture: %v", err))
		}
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown format %q", format))
	}
	return FromValue(raw)
}

// FromValue builds a Document from an already-decoded value, such as tool arguments.
// A nil value yields an empty document.
func FromValue(v any) (*Document, error) {
	if v == nil {
		return &Document{}, nil
	}
	root, ok := asFields(v)
	if !ok {
		return nil, errors.NewInvalidRequest("capture document must be an object")
	}

	doc := &Document{}
	ctxFields, wrapped := asFields(root["context"])
	_, hasInput := root["input"]
	if !wrapped && !hasInput {
		doc.Context = contextFrom(root)
		return doc, nil
	}
	if wrapped {
		doc.Context = contextFrom(ctxFields)
	}
	if in, ok := asFields(root["input"]); ok {
		doc.Input = report.UserInput{
			Title:       optString(in["title"]),
			Description: optString(in["description"]),
		}
	}
	doc.Labels = stringList(root["labels"])
	doc.Milestone = optInt(root["milestone"])
	doc.ScreenshotURL = optString(root["screenshoturl"])
	return doc, nil
}

func contextFrom(f fields) report.CapturedContext {
	return report.CapturedContext{
		URL:                optString(f["url"]),
		Title:              optString(f["title"]),
		UserAgent:          optString(f["useragent"]),
		Viewport:           viewport(f["viewport"]),
		SelectedText:       optString(f["selectedtext"]),
		HTMLSnippet:        optString(f["htmlsnippet"]),
		ScriptSnippet:      optString(f["scriptsnippet"]),
		CSSSelector:        optString(f["cssselector"]),
		ElementDescription: optString(f["elementdescription"]),
		JSError:            jsError(f["jserror"]),
		ConsoleLogs:        consoleLogs(f["consolelogs"]),
		NetworkRequests:    networkRequests(f["networkrequests"]),
		Timestamp:          optInt64(f["timestamp"]),
	}
}

// fields is an object with keys folded to lowercase and underscores removed, so
// userAgent, user_agent and UserAgent all read as useragent.
type fields map[string]any

func foldKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}

func asFields(v any) (fields, bool) {
	m, err := cast.ToStringMapE(v)
	if err != nil || m == nil {
		return nil, false
	}
	f := make(fields, len(m))
	for k, val := range m {
		f[foldKey(k)] = val
	}
	return f, true
}

// first returns the first key present, for fields known under several names.
func (f fields) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func optString(v any) *string {
	switch v.(type) {
	case nil, map[string]any, map[any]any, []any:
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil
	}
	return &s
}

// text renders any value as a string; objects and arrays become JSON, the way a
// console shows a logged object.
func text(v any) string {
	if s := optString(v); s != nil {
		return *s
	}
	if v == nil {
		return ""
	}
	b, err := json.Marshal(normalizeYAML(v))
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// normalizeYAML converts map[any]any nodes, which encoding/json cannot marshal.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalizeYAML(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	}
	return v
}

func optInt64(v any) *int64 {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil
	}
	return &n
}

func optInt(v any) *int {
	n := optInt64(v)
	if n == nil {
		return nil
	}
	i := int(*n)
	return &i
}

// viewport accepts "1920x1080" or {width, height}.
func viewport(v any) *string {
	if f, ok := asFields(v); ok {
		w, h := optInt64(f["width"]), optInt64(f["height"])
		if w == nil || h == nil {
			return nil
		}
		s := fmt.Sprintf("%dx%d", *w, *h)
		return &s
	}
	return optString(v)
}

// stringList accepts a list or a comma-separated string.
func stringList(v any) []string {
	var items []string
	if s, ok := v.(string); ok {
		items = strings.Split(s, ",")
	} else if list, err := cast.ToSliceE(v); err == nil {
		for _, item := range list {
			if s := optString(item); s != nil {
				items = append(items, *s)
			}
		}
	} else if list, err := cast.ToStringSliceE(v); err == nil {
		// typed slices such as []string from Go callers
		items = list
	}
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func jsError(v any) *report.JSError {
	if v == nil {
		return nil
	}
	f, ok := asFields(v)
	if !ok {
		// A bare string is taken as the message.
		if s := optString(v); s != nil {
			return &report.JSError{Message: s}
		}
		return nil
	}
	return &report.JSError{
		Message:   optString(f["message"]),
		Source:    optString(f.first("source", "filename")),
		Line:      optInt64(f.first("line", "lineno")),
		Column:    optInt64(f.first("column", "colno")),
		Stack:     optString(f["stack"]),
		Timestamp: optInt64(f["timestamp"]),
	}
}

func consoleLogs(v any) []report.ConsoleEntry {
	list, err := cast.ToSliceE(v)
	if err != nil {
		return nil
	}
	var out []report.ConsoleEntry
	for _, item := range list {
		f, ok := asFields(item)
		if !ok {
			continue
		}
		entry := report.ConsoleEntry{
			Type:      report.ConsoleLog,
			Message:   text(f.first("message", "msg")),
			Timestamp: optInt64(f["timestamp"]),
		}
		if t := optString(f.first("type", "level")); t != nil && strings.TrimSpace(*t) != "" {
			entry.Type = report.ConsoleType(strings.ToLower(strings.TrimSpace(*t)))
		}
		out = append(out, entry)
	}
	return out
}

func networkRequests(v any) []report.NetworkRequest {
	list, err := cast.ToSliceE(v)
	if err != nil {
		return nil
	}
	var out []report.NetworkRequest
	for _, item := range list {
		f, ok := asFields(item)
		if !ok {
			continue
		}
		out = append(out, report.NetworkRequest{
			Method:          optString(f["method"]),
			URL:             optString(f["url"]),
			Status:          optInt(f["status"]),
			ResponsePreview: optString(f.first("responsepreview", "response")),
		})
	}
	return out
}
