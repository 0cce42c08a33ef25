package query

import (
	"fmt"

	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/textnorm"
)

// AnswerKind is the shape of a synthesized verdict.
type AnswerKind string

const (
	AnswerEmpty  AnswerKind = "empty"
	AnswerNone   AnswerKind = "none"
	AnswerSingle AnswerKind = "single"
	AnswerNarrow AnswerKind = "narrow"
)

// Tone is a presentation hint for the verdict banner.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneInfo    Tone = "info"
)

const maxSuggestions = 6

// Suggestion is a disambiguation hint: a label to show and the query to re-run.
type Suggestion struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

// Answer is the single verdict produced for a query.
type Answer struct {
	Kind           AnswerKind    `json:"kind"`
	Text           string        `json:"text"`
	Specialist     string        `json:"specialist,omitempty"`
	Section        *string       `json:"section,omitempty"`
	Status         *slots.Status `json:"status,omitempty"`
	FirstAvailable *string       `json:"firstAvailable,omitempty"`
	Suggestions    []Suggestion  `json:"suggestions,omitempty"`
	Tone           Tone          `json:"bannerTone"`
}

// HasSlots reports whether the verdict is a positive single answer.
func (a Answer) HasSlots() bool {
	return a.Status != nil && *a.Status == slots.StatusHasSlots
}

func statusPtr(s slots.Status) *slots.Status { return &s }

func verdict(text, specialist, section string, status slots.Status, first *string, tone Tone) Answer {
	return Answer{
		Kind:           AnswerSingle,
		Text:           text,
		Specialist:     specialist,
		Section:        slots.StringPtr(section),
		Status:         statusPtr(status),
		FirstAvailable: first,
		Tone:           tone,
	}
}

func emptyAnswer() Answer {
	return Answer{Kind: AnswerEmpty, Text: `Enter specialist name, for example: "Neuroloska ambulanta I".`, Tone: ToneInfo}
}

func noneAnswer(label string) Answer {
	return Answer{Kind: AnswerNone, Text: fmt.Sprintf("No records found for %q.", label), Tone: ToneInfo}
}

func singleAnswer(it Item) Answer {
	if it.hasSlots() {
		text := fmt.Sprintf("YES: slots are available for %q. First available: %s.", it.Specialist, slots.Deref(it.FirstAvailable, "unknown"))
		return verdict(text, it.Specialist, it.Section, it.Status, it.FirstAvailable, ToneSuccess)
	}
	text := fmt.Sprintf("NO: there are no free slots for %q.", it.Specialist)
	return verdict(text, it.Specialist, it.Section, it.Status, it.FirstAvailable, ToneDanger)
}

func narrowAnswer(items []Item) Answer {
	return Answer{
		Kind:        AnswerNarrow,
		Text:        fmt.Sprintf("Several matches found (%d).", len(items)),
		Suggestions: narrowSuggestions(items),
		Tone:        ToneInfo,
	}
}

func narrowSuggestions(items []Item) []Suggestion {
	out := make([]Suggestion, 0, maxSuggestions)
	seen := make(map[string]struct{})
	for _, it := range items {
		label := fmt.Sprintf("%s (%s)", it.Specialist, it.Section)
		key := textnorm.Normalize(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Suggestion{Label: label, Query: it.Specialist})
		if len(out) >= maxSuggestions {
			break
		}
	}
	return out
}

// combinedInvestigationAnswer summarizes a procedure subset (CT, OCT, ultrasound).
// Items must already be in canonical order.
func combinedInvestigationAnswer(label string, items []Item) Answer {
	if len(items) == 0 {
		return noneAnswer(label)
	}
	for _, it := range items {
		if it.hasSlots() {
			text := fmt.Sprintf("IMA TERMINA\nPrvi dostupni termin: %s (%s)", slots.Deref(it.FirstAvailable, "nepoznato"), it.Specialist)
			return verdict(text, label, it.Section, slots.StatusHasSlots, it.FirstAvailable, ToneSuccess)
		}
	}
	return verdict("NEMA TERMINA", label, "", slots.StatusNoSlots, nil, ToneDanger)
}

const (
	neurologyLabel   = "Neuroloska ambulanta I/II"
	neurologySection = "KLINIKA ZA NEUROLOGIJU"

	endocrinologyLabel   = "ENDOKRINOLOSKA AMBULANTA 1/2/3"
	endocrinologySection = "INTERNA KLINIKA"

	cardiologyLabel   = "KARDIOLOSKA AMB 1/2/3 + KONTROLA + INTERVENTNA"
	cardiologySection = "KLINIKA ZA BOLESTI SRCA"

	noFreeSlots = "NEMA SLOBODNIH TERMINA"
)

func neurologyAnswer(visible []Item) Answer {
	relevant := filter(visible, isNeurologyAmbulantaOneOrTwo)
	if len(relevant) == 0 {
		return Answer{Kind: AnswerNone, Text: `No "Neuroloska ambulanta I/II" records found in the current report.`, Tone: ToneInfo}
	}
	best, ok := earliest(relevant)
	if !ok {
		return verdict("NO: there are no free slots for neurologist (Neuroloska ambulanta I/II).",
			neurologyLabel, neurologySection, slots.StatusNoSlots, nil, ToneDanger)
	}
	text := fmt.Sprintf("YES: there are free neurologist slots (Neuroloska ambulanta I/II). Earliest: %s in %q.",
		slots.Deref(best.FirstAvailable, "unknown"), best.Specialist)
	return verdict(text, neurologyLabel, neurologySection, slots.StatusHasSlots, best.FirstAvailable, ToneSuccess)
}

func endocrinologyAnswer(primary []Item) Answer {
	best, ok := earliest(primary)
	if !ok {
		return verdict(noFreeSlots, endocrinologyLabel, endocrinologySection, slots.StatusNoSlots, nil, ToneDanger)
	}
	text := fmt.Sprintf("YES: first available endocrinology slot is %s (%s).", slots.Deref(best.FirstAvailable, "unknown"), best.Specialist)
	return verdict(text, endocrinologyLabel, endocrinologySection, slots.StatusHasSlots, best.FirstAvailable, ToneSuccess)
}

func cardiologyAnswer(primary []Item) Answer {
	best, ok := earliest(primary)
	if !ok {
		return verdict(noFreeSlots, cardiologyLabel, cardiologySection, slots.StatusNoSlots, nil, ToneDanger)
	}
	text := fmt.Sprintf("YES: first available cardiology slot is %s (%s).", slots.Deref(best.FirstAvailable, "unknown"), best.Specialist)
	return verdict(text, cardiologyLabel, cardiologySection, slots.StatusHasSlots, best.FirstAvailable, ToneSuccess)
}

// buildAnswer is the default verdict state machine, used when no intent rule forced one.
func buildAnswer(in Intent, items, visible []Item) Answer {
	if in.Empty() {
		return emptyAnswer()
	}
	if in.Neurology && !in.CabinetNumber {
		return neurologyAnswer(visible)
	}
	switch len(items) {
	case 0:
		return noneAnswer(in.Raw)
	case 1:
		return singleAnswer(items[0])
	}

	var exact []Item
	for _, it := range items {
		if it.specialist == in.Latin || it.specialist+" "+it.section == in.Latin {
			exact = append(exact, it)
		}
	}
	if len(exact) == 1 {
		return singleAnswer(exact[0])
	}
	return narrowAnswer(items)
}
