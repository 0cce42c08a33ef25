package textnorm

import "regexp"

type aliasRule struct {
	name    string
	trigger *regexp.Regexp
	adds    []string
}

var ultrasoundTerms = []string{
	"uz", "uzv", "ultrazv", "ultrazvuk", "ultrazvuc", "ultrazvucn",
	"ultrazvucna dijagnostika", "ultrzvucna dijagnostika",
}

// aliasRules fire independently; every rule whose trigger matches the latin
// query contributes its synonyms.
var aliasRules = []aliasRule{
	{"rheumatology", regexp.MustCompile(`(revmatolog|revmatol|reumatolog|reumatol)`),
		[]string{"reumatolog", "reumatolosk", "reumatoloska ambulanta", "reumatoloski konzilijum"}},
	{"neurology", regexp.MustCompile(`(nevrolog|neurolog|nevro|neuro)`),
		[]string{"neurolog", "neuroloska ambulanta"}},
	{"cardiology", regexp.MustCompile(`(kardiolog|cardiolog)`),
		[]string{"kardiolog", "kardioloska ambulanta"}},
	{"gastroenterology", regexp.MustCompile(`(gastroenterolog|gastroenterohepatolog|geh|gastrolog)`),
		[]string{"gastroenterohepatolog", "gastroenterohepatoloska", "geh"}},
	{"endocrinology", regexp.MustCompile(`endokrinolog`),
		[]string{"endokrinolog", "endokrinoloska ambulanta"}},
	{"nephrology", regexp.MustCompile(`nefrolog`),
		[]string{"nefrolog", "nefroloska ambulanta"}},
	{"pulmonology", regexp.MustCompile(`(pulmonolog|pneumolog)`),
		[]string{"pulmolog", "pulmoloska ambulanta"}},
	{"allergology", regexp.MustCompile(`(alergolog|allergolog)`),
		[]string{"alergolog", "alergoloska ambulanta"}},
	{"gynecology", regexp.MustCompile(`ginekolog`),
		[]string{"ginekolog", "ginekoloska ambulanta"}},
	{"urology", regexp.MustCompile(`urolog`),
		[]string{"urolog", "uroloska ambulanta"}},
	{"orthopedics", regexp.MustCompile(`ortoped`),
		[]string{"ortoped", "ortopedska ambulanta"}},
	{"surgery", regexp.MustCompile(`(hirurg|chirurg|surgeon)`),
		[]string{"hirurg", "hirurska ambulanta"}},
	{"ophthalmology", regexp.MustCompile(`(oftalmolog|okulist)`),
		[]string{"oftalmolog", "oftalmoloska ambulanta"}},
	{"otolaryngology", regexp.MustCompile(`(lor|otorino|otolaringolog)`),
		[]string{"orl", "otorinolaringolog"}},
	{"psychiatry", regexp.MustCompile(`(psihiatr|psychiatr)`),
		[]string{"psihijatar", "psihijatrijska ambulanta"}},
	{"oncology", regexp.MustCompile(`onkolog`),
		[]string{"onkolog", "onkologija"}},
	{"hematology", regexp.MustCompile(`hematolog`),
		[]string{"hematolog", "hematoloska ambulanta"}},
	{"dermatology", regexp.MustCompile(`(dermatolog|venerolog)`),
		[]string{"dermatovenerolog", "dermatovenerologija"}},
	{"bone-density", regexp.MustCompile(`(osteodenzitomet|dxa|dexa|dex|denzitomet|densitomet|gustina kost|bone density)`),
		[]string{
			"osteodenzitometrij", "osteodenzitometriju", "kabinet za osteodenzitometriju",
			"dxa", "dexa", "dex", "denzitometrij", "densitometrij", "gustina kostiju", "gustina kosti",
		}},
	{"ultrasound", regexp.MustCompile(`\buz\b|ultrazv|ultrasound`), ultrasoundTerms},
	{"doppler", regexp.MustCompile(`(dopler|doppler)`),
		append([]string{"dopler", "doppler"}, ultrasoundTerms...)},
	// Typos like "ultrzvuk" and users mixing ultrasound with doppler.
	{"ultrasound-doppler", regexp.MustCompile(`(ultrazv|ultrazvuk|ultrazvuc|ultrzvuc|uz)`),
		[]string{"ultrazv", "ultrazvuk", "ultrazvuc", "ultrazvucn", "uzv", "dopler", "doppler", "kolor dopler", "color doppler"}},
}

// ExpandAliases returns the de-duplicated candidate needles for a raw query:
// the normalized query, its normalized transliteration, and every synonym set
// whose trigger fires on the latin form. Order is first-seen.
func ExpandAliases(query string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(value string) {
		n := Normalize(value)
		if n == "" {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	add(query)
	translit := Transliterate(query)
	add(translit)

	latin := Normalize(translit)
	for _, rule := range aliasRules {
		if !rule.trigger.MatchString(latin) {
			continue
		}
		for _, alias := range rule.adds {
			add(alias)
		}
	}
	return out
}
