package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SourceHint describes how a message reached the bot
type SourceHint string

const (
	SourceCommand  SourceHint = "command"
	SourceButton   SourceHint = "button"
	SourceFreeText SourceHint = "free_text"
	SourceUnknown  SourceHint = "unknown"
)

// ParseResult is the outcome of classifying one message.
// The concrete type is one of ParsedEvent, ShowMenu, StatusPending or Unrecognized.
type ParseResult interface {
	parseResult()
}

// ParsedEvent is a recognised attendance action
type ParsedEvent struct {
	Type EventType
	Text string // Status text, empty for every other type
}

// ShowMenu asks the caller to present the action menu
type ShowMenu struct{}

// StatusPending asks the caller to treat the next message as status text
type StatusPending struct{}

// Unrecognized means no event was produced
type Unrecognized struct{}

func (ParsedEvent) parseResult()   {}
func (ShowMenu) parseResult()      {}
func (StatusPending) parseResult() {}
func (Unrecognized) parseResult()  {}

type commandRule struct {
	name      string
	eventType EventType
}

// Slash commands, matched on the normalized token without the leading slash
var commandTable = []commandRule{
	{"start", EventShiftStart},
	{"break_start", EventBreakStart},
	{"break_end", EventBreakEnd},
	{"end", EventShiftEnd},
	{"status", EventStatus},
}

type buttonRule struct {
	label     string
	eventType EventType
}

// ButtonLabels are the reply-keyboard captions, in menu order
var ButtonLabels = []string{
	"🟢 Start shift",
	"☕ Break start",
	"✅ Break end",
	"🔴 End shift",
	"📝 Status update",
}

var buttonTable = []buttonRule{
	{normalize(ButtonLabels[0]), EventShiftStart},
	{normalize(ButtonLabels[1]), EventBreakStart},
	{normalize(ButtonLabels[2]), EventBreakEnd},
	{normalize(ButtonLabels[3]), EventShiftEnd},
	{normalize(ButtonLabels[4]), EventStatus},
}

type synonymRule struct {
	phrase    string
	eventType EventType
}

// Free text synonyms. Matching is by substring, first hit wins, so
// multi-word phrases must stay ahead of the single words they contain.
var synonymTable = []synonymRule{
	{"break start", EventBreakStart},
	{"break end", EventBreakEnd},
	{"clock in", EventShiftStart},
	{"clock out", EventShiftEnd},

	{"started", EventShiftStart},
	{"start", EventShiftStart},
	{"login", EventShiftStart},

	{"ended", EventShiftEnd},
	{"end", EventShiftEnd},
	{"logout", EventShiftEnd},

	{"break", EventBreakStart},
	{"tea", EventBreakStart},
	{"lunch", EventBreakStart},
	{"pause", EventBreakStart},

	{"back", EventBreakEnd},
	{"resume", EventBreakEnd},

	{"out", EventShiftEnd},
	{"in", EventShiftStart},
}

// Leading phrases that introduce inline status text. Longest first.
var statusTriggers = []string{"status update", "status"}

// Classify maps one inbound message to a ParseResult. It never fails;
// Unrecognized is the fallback for anything it does not understand.
func Classify(message string, hint SourceHint) ParseResult {
	raw := strings.TrimSpace(message)
	if raw == "" {
		return Unrecognized{}
	}

	if strings.HasPrefix(raw, "/") {
		return classifyCommand(raw)
	}

	text := normalize(raw)
	if text == "" {
		return Unrecognized{}
	}

	if text == "menu" {
		return ShowMenu{}
	}

	for _, b := range buttonTable {
		if text == b.label {
			if b.eventType == EventStatus {
				return StatusPending{}
			}
			return ParsedEvent{Type: b.eventType}
		}
	}

	if hint != SourceFreeText && hint != SourceUnknown {
		return Unrecognized{}
	}

	if res, ok := classifyStatusPhrase(raw); ok {
		return res
	}

	for _, s := range synonymTable {
		if text == s.phrase || strings.Contains(text, s.phrase) {
			return ParsedEvent{Type: s.eventType}
		}
	}

	return Unrecognized{}
}

// IsButtonLabel reports whether message is exactly one of the menu buttons
func IsButtonLabel(message string) bool {
	text := normalize(message)
	for _, b := range buttonTable {
		if text == b.label {
			return true
		}
	}
	return false
}

func classifyCommand(raw string) ParseResult {
	token, tail := raw, ""
	if i := strings.IndexFunc(raw, unicode.IsSpace); i >= 0 {
		token, tail = raw[:i], strings.TrimSpace(raw[i:])
	}

	name := strings.TrimPrefix(normalize(token), "/")
	for _, c := range commandTable {
		if name != c.name {
			continue
		}
		if c.eventType == EventStatus {
			if tail == "" {
				return StatusPending{}
			}
			return ParsedEvent{Type: EventStatus, Text: tail}
		}
		return ParsedEvent{Type: c.eventType}
	}
	return Unrecognized{}
}

// classifyStatusPhrase handles "status update <text>" typed as free text.
// The remainder is cut from the original message so its casing survives.
func classifyStatusPhrase(raw string) (ParseResult, bool) {
	for _, trigger := range statusTriggers {
		rest, ok := cutTrigger(raw, trigger)
		if !ok {
			continue
		}
		if rest == "" {
			return StatusPending{}, true
		}
		return ParsedEvent{Type: EventStatus, Text: rest}, true
	}
	return nil, false
}

// cutTrigger matches trigger at the start of raw the way normalize would
// see it (case folded, variation selectors ignored, any run of whitespace
// for a space) and returns what follows. The trigger must end at a
// non-letter; a leading ":", "-" or "," separator is dropped.
func cutTrigger(raw, trigger string) (string, bool) {
	s := strings.TrimLeftFunc(raw, isIgnorable)

	for _, want := range trigger {
		if want == ' ' {
			trimmed := strings.TrimLeftFunc(s, isIgnorable)
			if len(trimmed) == len(s) {
				return "", false
			}
			s = trimmed
			continue
		}
		s = strings.TrimLeftFunc(s, isVariationSelector)
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 || unicode.ToLower(r) != want {
			return "", false
		}
		s = s[size:]
	}

	s = strings.TrimLeftFunc(s, isVariationSelector)
	if r, _ := utf8.DecodeRuneInString(s); s != "" && unicode.IsLetter(r) {
		return "", false
	}

	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return isIgnorable(r) || strings.ContainsRune(statusSeparators, r)
	})
	return strings.TrimSpace(s), true
}

// Punctuation allowed between the status phrase and the status text
const statusSeparators = ":-,–—"

func isVariationSelector(r rune) bool {
	return r == '\uFE0F' || r == '\uFE0E'
}

func isIgnorable(r rune) bool {
	return unicode.IsSpace(r) || isVariationSelector(r)
}

// normalize folds a message into the form every table is keyed by:
// NFC, no emoji variation selectors, single spaces, lower case.
func normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if isVariationSelector(r) {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
