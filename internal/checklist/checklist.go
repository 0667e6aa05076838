// Package checklist normalizes the heterogeneous checklist representations
// that flow through the system: machine templates, schedule templates,
// ticket snapshots and daily submissions. Items are joined across those by a
// stable slug key rather than by position, so wording edits and reordering
// do not break history.
package checklist

import (
	"encoding/json"
	"strconv"
	"strings"

	"manutec/internal/status"
)

// TemplateItem is a schedule/template entry: text plus its stable key.
type TemplateItem struct {
	Text string `json:"texto"`
	Key  string `json:"key"`
}

// Answer is a ticket checklist snapshot entry.
type Answer struct {
	Item     string `json:"item"`
	Resposta string `json:"resposta"`
}

const (
	Yes = "sim"
	No  = "nao"
)

// Slug derives the stable key for an item text: diacritics folded,
// lowercased, non-alphanumeric runs collapsed to a single dash.
func Slug(text string) string {
	folded := status.Fold(text)
	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}

// KeyFor is Slug with a positional fallback for texts that slug to nothing.
func KeyFor(text string, idx int) string {
	if s := Slug(text); s != "" {
		return s
	}
	return strconv.Itoa(idx)
}

// NormalizeResposta maps free-text answers onto sim/nao. Anything starting
// with "n" is a fail; everything else passes.
func NormalizeResposta(raw string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "n") {
		return No
	}
	return Yes
}

// ParseTemplate accepts the template shapes seen in the wild: a JSON array of
// strings, an array of {texto,key} objects, or a newline-delimited blob.
// Empty entries are dropped; keys are recomputed when absent.
func ParseTemplate(raw json.RawMessage) []TemplateItem {
	if len(raw) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Not an array: try a bare string holding JSON or textarea lines.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return parseTemplateString(s)
	}

	items := make([]TemplateItem, 0, len(entries))
	for i, e := range entries {
		var obj struct {
			Texto string `json:"texto"`
			Key   string `json:"key"`
		}
		if err := json.Unmarshal(e, &obj); err == nil && strings.TrimSpace(obj.Texto) != "" {
			text := strings.TrimSpace(obj.Texto)
			key := obj.Key
			if key == "" {
				key = KeyFor(text, i)
			} else {
				key = Slug(key)
			}
			items = append(items, TemplateItem{Text: text, Key: key})
			continue
		}
		var s string
		if err := json.Unmarshal(e, &s); err != nil {
			var n json.Number
			if err := json.Unmarshal(e, &n); err != nil {
				continue
			}
			s = n.String()
		}
		if text := strings.TrimSpace(s); text != "" {
			items = append(items, TemplateItem{Text: text, Key: KeyFor(text, i)})
		}
	}
	return items
}

func parseTemplateString(s string) []TemplateItem {
	var parsed []any
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		b, _ := json.Marshal(parsed)
		return ParseTemplate(b)
	}
	var items []TemplateItem
	for i, line := range strings.Split(s, "\n") {
		if text := strings.TrimSpace(strings.TrimSuffix(line, "\r")); text != "" {
			items = append(items, TemplateItem{Text: text, Key: KeyFor(text, i)})
		}
	}
	return items
}

// RawAnswer is the submitted shape of one snapshot entry. Legacy clients send
// "status" instead of "resposta"; plain strings arrive with both empty.
type RawAnswer struct {
	Item     string `json:"item"`
	Resposta string `json:"resposta"`
	Status   string `json:"status"`
}

func (r *RawAnswer) UnmarshalJSON(data []byte) error {
	type alias RawAnswer
	var a alias
	if err := json.Unmarshal(data, &a); err == nil {
		*r = RawAnswer(a)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = RawAnswer{Item: s}
	return nil
}

// NormalizeAnswers turns submitted entries into a clean snapshot, dropping
// entries with no item text.
func NormalizeAnswers(raw []RawAnswer) []Answer {
	out := make([]Answer, 0, len(raw))
	for _, r := range raw {
		item := strings.TrimSpace(r.Item)
		if item == "" {
			continue
		}
		resp := r.Resposta
		if resp == "" {
			resp = r.Status
		}
		if resp == "" {
			resp = Yes
		}
		out = append(out, Answer{Item: item, Resposta: NormalizeResposta(resp)})
	}
	return out
}

// AnswerMap indexes a snapshot by stable key.
func AnswerMap(answers []Answer) map[string]string {
	m := make(map[string]string, len(answers))
	for _, a := range answers {
		m[Slug(a.Item)] = a.Resposta
	}
	return m
}

// BaselineFromTemplate copies template items into an assumed-pass snapshot.
func BaselineFromTemplate(items []TemplateItem) []Answer {
	out := make([]Answer, 0, len(items))
	for _, it := range items {
		out = append(out, Answer{Item: it.Text, Resposta: Yes})
	}
	return out
}
