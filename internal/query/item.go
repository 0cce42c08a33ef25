package query

import (
	"regexp"
	"strings"

	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/textnorm"
)

// SlotKind separates diagnostic procedures from ordinary specialist visits.
type SlotKind string

const (
	KindInvestigation   SlotKind = "INVESTIGATION"
	KindSpecialistVisit SlotKind = "SPECIALIST_VISIT"
)

// Item is a snapshot entry prepared for matching.
type Item struct {
	Key            string       `json:"key"`
	Section        string       `json:"section"`
	Specialist     string       `json:"specialist"`
	Status         slots.Status `json:"status"`
	FirstAvailable *string      `json:"firstAvailable"`
	Codes          []string     `json:"codes"`
	SlotKind       SlotKind     `json:"slotKind"`

	section    string // normalized section
	specialist string // normalized specialist
	combined   string // normalized "specialist section"
}

func newItem(s slots.Specialist) Item {
	codes := s.Codes
	if codes == nil {
		codes = []string{}
	}
	it := Item{
		Key:            s.Key,
		Section:        s.Section,
		Specialist:     s.Specialist,
		Status:         s.Status,
		FirstAvailable: s.FirstAvailable,
		Codes:          codes,
		section:        textnorm.Normalize(s.Section),
		specialist:     textnorm.Normalize(s.Specialist),
		combined:       textnorm.Normalize(s.Specialist + " " + s.Section),
	}
	it.SlotKind = detectSlotKind(it.combined)
	return it
}

func (it Item) hasSlots() bool { return it.Status == slots.StatusHasSlots }

func (it Item) asSpecialist() slots.Specialist {
	return slots.Specialist{
		Key:            it.Key,
		Section:        it.Section,
		Specialist:     it.Specialist,
		Status:         it.Status,
		FirstAvailable: it.FirstAvailable,
	}
}

var investigationMarkers = []string{
	"gastroskop", "kolono", "ct ", " ct", "mr ", " mri", " mrt", "rtg", "eeg", "emng",
	"echo", "eho", "dopler", "doppler", "uz ", "ultrazv", "ergomet", "holter", "endoskop",
	"kabinet", "dijagnost", "dxa", "dexa", "dex", "denzitomet", "densitomet", "osteodenzit",
	"gustina kost",
}

func detectSlotKind(normalized string) SlotKind {
	for _, marker := range investigationMarkers {
		if strings.Contains(normalized, marker) {
			return KindInvestigation
		}
	}
	return KindSpecialistVisit
}

var (
	upperToken     = regexp.MustCompile(`[A-Z0-9]+`)
	numberedRaw    = regexp.MustCompile(`(?i)\b(1|2|3|i|ii|iii)\b`)
	neuroNumRaw    = regexp.MustCompile(`(?i)\b(I|II|1|2)\b`)
	neuroNumNorm   = regexp.MustCompile(`\b(i|ii|1|2)\b`)
	pediatricNorm  = regexp.MustCompile(`(djec|deca|djeca|pedij|pediat|neonat|ibd)`)
	consiliumNorm  = regexp.MustCompile(`(konzilij|konsilij|consilium|konsilium)`)
	ultrasoundWord = regexp.MustCompile(`(^|\s)uzv?($|\s)`)
)

func hasUpperToken(it Item, token string) bool {
	for _, t := range upperToken.FindAllString(strings.ToUpper(it.Specialist+" "+it.Section), -1) {
		if t == token {
			return true
		}
	}
	return false
}

func isCTItem(it Item) bool  { return hasUpperToken(it, "CT") }
func isOCTItem(it Item) bool { return hasUpperToken(it, "OCT") }

func isOphthalmologyClinic(it Item) bool {
	return strings.Contains(it.section, "klinika za ocne bolesti")
}

func isUltrasoundItem(it Item) bool {
	text := it.combined
	for _, marker := range []string{"dopler", "doppler", "ultrazv", "ultrazvuk", "ultrazvuc"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return ultrasoundWord.MatchString(text)
}

func isPediatricItem(it Item) bool {
	if strings.Contains(it.section, "institut za bolesti djece") {
		return true
	}
	raw := strings.ToUpper(it.Section + " " + it.Specialist)
	if strings.Contains(raw, "IBD") || strings.Contains(raw, "DJE") || strings.Contains(raw, "PEDIJ") {
		return true
	}
	return pediatricNorm.MatchString(it.specialist)
}

func isExcludedAdministrativeItem(it Item) bool {
	return consiliumNorm.MatchString(it.combined) ||
		strings.Contains(it.combined, "upucivanje pacijenata u inostranstvo")
}

func isPrimaryEndocrinologyAmbulanta(it Item) bool {
	return strings.Contains(it.section, "interna klinika") &&
		strings.Contains(it.specialist, "endokrinol") &&
		strings.Contains(it.specialist, "ambulanta") &&
		numberedRaw.MatchString(it.Specialist)
}

func isRelatedEndocrinologyItem(it Item) bool {
	if !strings.Contains(it.specialist, "endokrin") {
		return false
	}
	surgery := strings.Contains(it.specialist, "hirurg") || strings.Contains(it.section, "hirurska klinika")
	gynecology := strings.Contains(it.specialist, "ginekol") || strings.Contains(it.section, "ginekologiju i akuserstvo")
	return surgery || gynecology
}

func isPrimaryCardiologyItem(it Item) bool {
	if !strings.Contains(it.section, "klinika za bolesti srca") || !strings.Contains(it.specialist, "kardiol") {
		return false
	}
	numbered := strings.Contains(it.specialist, "ambulanta") && numberedRaw.MatchString(it.Specialist)
	return numbered || strings.Contains(it.specialist, "kontrol") || strings.Contains(it.specialist, "intervent")
}

func isCardiologyUniverseItem(it Item) bool {
	return strings.Contains(it.section, "klinika za bolesti srca") ||
		strings.Contains(it.specialist, "kardio")
}

func isNeurologyAmbulantaOneOrTwo(it Item) bool {
	if !strings.Contains(it.section, "klinika za neurologiju") || !strings.Contains(it.specialist, "ambulanta") {
		return false
	}
	if !strings.Contains(it.specialist, "neurol") && !strings.Contains(strings.ToUpper(it.Specialist), "NEUROLO") {
		return false
	}
	return neuroNumRaw.MatchString(it.Specialist) || neuroNumNorm.MatchString(it.specialist)
}

var (
	rankOne   = regexp.MustCompile(`\b1\b|\bI\b`)
	rankTwo   = regexp.MustCompile(`\b2\b|\bII\b`)
	rankThree = regexp.MustCompile(`\b3\b|\bIII\b`)
)

func ambulantaRank(specialist string) int {
	upper := strings.ToUpper(specialist)
	switch {
	case rankOne.MatchString(upper):
		return 1
	case rankTwo.MatchString(upper):
		return 2
	case rankThree.MatchString(upper):
		return 3
	default:
		return 99
	}
}
