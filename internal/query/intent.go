package query

import (
	"regexp"
	"strings"

	"github.com/wolfman30/slot-watch/internal/textnorm"
)

var (
	childPattern         = regexp.MustCompile(`(det|reben|pediatr|children|child|kids|kid|baby|infant|pedij|pediat|deca|djeca|djec|dijete|dece|ibd|neonat)`)
	neurologyPattern     = regexp.MustCompile(`(nevrolog|neurolog|nevrolo|neurolo)`)
	cabinetNumberPattern = regexp.MustCompile(`\b(i|ii|iii|1|2|3)\b`)
	endocrinologyPattern = regexp.MustCompile(`(endokri|endocri|endokrinolog|endokrinologija|endokrinol)`)
	cardiologyPattern    = regexp.MustCompile(`(kardiolog|cardiolog|kardiolo|cardiolo|kardiologija|kardio)`)
	investigationPattern = regexp.MustCompile(`(ct|mr|mri|mrt|eeg|emng|echo|eho|dopler|doppler|gastroskop|kolono|uz|ultrazv|ultrzv|ultrazvuc|dijagnost|kabinet|test|dxa|dexa|dex|denzitomet|densitomet|osteodenzito|gustina kost)`)

	ultrasoundQueryMarkers = []string{"uz", "uzv", "ultrazv", "ultrazvuk", "ultrazvuc", "ultrzv", "dopler", "doppler"}
)

// Intent is the classification of one raw query. Every flag is computed on
// the latin-normalized form.
type Intent struct {
	Raw    string
	Latin  string
	tokens []string

	Child         bool
	Neurology     bool
	CabinetNumber bool
	Endocrinology bool
	Cardiology    bool
	Investigation bool
	CT            bool
	OCT           bool
	OnlyCT        bool
	Ultrasound    bool
}

// Classify computes the intent flags of a raw query.
func Classify(raw string) Intent {
	raw = strings.TrimSpace(raw)
	latin := textnorm.Latin(raw)
	in := Intent{Raw: raw, Latin: latin, tokens: textnorm.Words(latin)}

	in.Child = childPattern.MatchString(latin)
	in.Neurology = neurologyPattern.MatchString(latin)
	in.CabinetNumber = cabinetNumberPattern.MatchString(latin)
	in.Endocrinology = endocrinologyPattern.MatchString(latin)
	in.Cardiology = cardiologyPattern.MatchString(latin)
	in.Investigation = investigationPattern.MatchString(latin)
	in.CT = in.hasToken("ct")
	in.OCT = in.hasToken("oct")
	in.OnlyCT = len(in.tokens) == 1 && in.tokens[0] == "ct"
	for _, tok := range in.tokens {
		for _, marker := range ultrasoundQueryMarkers {
			if strings.Contains(tok, marker) {
				in.Ultrasound = true
			}
		}
	}
	return in
}

// Empty reports whether the query carries no text at all.
func (in Intent) Empty() bool { return in.Raw == "" }

func (in Intent) hasToken(token string) bool {
	for _, t := range in.tokens {
		if t == token {
			return true
		}
	}
	return false
}

func (in Intent) ctOnly() bool         { return in.CT && !in.OCT }
func (in Intent) ultrasoundOnly() bool { return in.Ultrasound && !in.ctOnly() && !in.OCT }

// plainVisit is the shared gate of the endocrinology and cardiology verdicts:
// no procedure words and no explicit clinic number.
func (in Intent) plainVisit() bool { return !in.Investigation && !in.CabinetNumber }
