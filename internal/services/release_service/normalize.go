package releaseservice

import (
	"encoding/json"
	"strings"

	"appdist/internal/models"
)

// RawField carries free-form changelog/custom-field input. The shape is
// decided once at the HTTP boundary: either Text (raw string) or
// Structured (already-parsed data). Structured wins when both are set.
type RawField struct {
	Text       string
	Structured any
}

// NoChangelogMessage is the placeholder shown when a release carries no
// changelog and a human-readable default is requested.
const NoChangelogMessage = "No changelog provided"

// NormalizeChangelog converts raw changelog input into the canonical
// entry list. Structured input passes through, JSON text is parsed,
// empty input yields the empty list, and any other text is split into
// one entry per non-blank line.
func NormalizeChangelog(raw RawField) models.ChangelogList {
	if raw.Structured != nil {
		return changelogFromStructured(raw.Structured)
	}

	text := strings.TrimSpace(raw.Text)
	if text == "" {
		return models.ChangelogList{}
	}
	if looksLikeJSON(text) {
		if list, ok := changelogFromJSON(text); ok {
			return list
		}
	}

	out := models.ChangelogList{}
	for _, line := range strings.Split(raw.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, models.ChangelogEntry{Message: line})
	}
	return out
}

// NormalizeCustomFields follows the same rule as NormalizeChangelog but
// non-JSON text falls back to the empty list instead of line splitting.
func NormalizeCustomFields(raw RawField) models.CustomFieldList {
	if raw.Structured != nil {
		return customFieldsFromStructured(raw.Structured)
	}

	text := strings.TrimSpace(raw.Text)
	if text == "" || !looksLikeJSON(text) {
		return models.CustomFieldList{}
	}

	var list models.CustomFieldList
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list
	}
	var single models.CustomField
	if err := json.Unmarshal([]byte(text), &single); err == nil {
		return models.CustomFieldList{single}
	}
	return models.CustomFieldList{}
}

// EmptyChangelogPlaceholder returns the fixed one-entry placeholder for
// releases without a changelog, or the empty list when the default is
// suppressed.
func EmptyChangelogPlaceholder(withDefault bool) models.ChangelogList {
	if !withDefault {
		return models.ChangelogList{}
	}
	return models.ChangelogList{{Message: NoChangelogMessage}}
}

// NormalizeBranch strips a literal "origin/" remote prefix. Everything
// else, including the empty string, passes through unchanged.
func NormalizeBranch(raw string) string {
	return strings.TrimPrefix(raw, "origin/")
}

func looksLikeJSON(text string) bool {
	return strings.HasPrefix(text, "[") || strings.HasPrefix(text, "{")
}

func changelogFromJSON(text string) (models.ChangelogList, bool) {
	data := []byte(text)

	var entries models.ChangelogList
	if err := json.Unmarshal(data, &entries); err == nil {
		if entries == nil {
			entries = models.ChangelogList{}
		}
		return entries, true
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		out := models.ChangelogList{}
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, models.ChangelogEntry{Message: line})
		}
		return out, true
	}
	var single models.ChangelogEntry
	if err := json.Unmarshal(data, &single); err == nil && single.Message != "" {
		return models.ChangelogList{single}, true
	}
	return nil, false
}

func changelogFromStructured(v any) models.ChangelogList {
	switch s := v.(type) {
	case models.ChangelogList:
		if s == nil {
			return models.ChangelogList{}
		}
		return s
	case []models.ChangelogEntry:
		return models.ChangelogList(s)
	case []string:
		out := models.ChangelogList{}
		for _, line := range s {
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, models.ChangelogEntry{Message: line})
		}
		return out
	case []any:
		out := models.ChangelogList{}
		for _, item := range s {
			switch e := item.(type) {
			case string:
				out = append(out, models.ChangelogEntry{Message: e})
			case map[string]any:
				if msg, ok := e["message"].(string); ok {
					out = append(out, models.ChangelogEntry{Message: msg})
				}
			}
		}
		return out
	default:
		return models.ChangelogList{}
	}
}

func customFieldsFromStructured(v any) models.CustomFieldList {
	switch s := v.(type) {
	case models.CustomFieldList:
		if s == nil {
			return models.CustomFieldList{}
		}
		return s
	case []models.CustomField:
		return models.CustomFieldList(s)
	case []any:
		out := models.CustomFieldList{}
		for _, item := range s {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			field := models.CustomField{}
			if name, ok := m["name"].(string); ok {
				field.Name = name
			}
			if value, ok := m["value"].(string); ok {
				field.Value = value
			}
			if icon, ok := m["icon"].(string); ok {
				field.Icon = icon
			}
			out = append(out, field)
		}
		return out
	default:
		return models.CustomFieldList{}
	}
}
