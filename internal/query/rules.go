package query

import (
	"sort"
	"strings"
)

// evaluation is the working state threaded through the intent rules.
type evaluation struct {
	intent  Intent
	match   matcher
	visible []Item
	items   []Item

	answer       *Answer
	related      []Item
	relatedTitle *string
}

// rule refines the candidate items for one family of intents. A rule that sets
// a forced answer ends evaluation; the remaining rules are skipped.
type rule struct {
	name    string
	applies func(Intent) bool
	apply   func(*evaluation)
}

// intentRules run in order. Investigation intents exclude the endocrinology
// and cardiology gates, so at most one forcing rule can match a query.
var intentRules = []rule{
	{name: "oct", applies: func(in Intent) bool { return in.OCT }, apply: applyOCT},
	{name: "ct", applies: Intent.ctOnly, apply: applyCT},
	{name: "ultrasound", applies: Intent.ultrasoundOnly, apply: applyUltrasound},
	{name: "endocrinology-visits", applies: func(in Intent) bool { return in.Endocrinology && !in.Investigation }, apply: applyEndocrinologyVisits},
	{name: "endocrinology", applies: func(in Intent) bool { return in.Endocrinology && in.plainVisit() }, apply: applyEndocrinology},
	{name: "cardiology", applies: func(in Intent) bool { return in.Cardiology && in.plainVisit() }, apply: applyCardiology},
}

func (e *evaluation) force(a Answer, items []Item) {
	e.answer = &a
	e.items = items
}

func (e *evaluation) matching(pred func(Item) bool) []Item {
	return sortItems(filter(e.visible, func(it Item) bool { return pred(it) && e.match.matches(it) }))
}

func applyOCT(e *evaluation) {
	items := e.matching(isOCTItem)
	e.force(combinedInvestigationAnswer("OCT", items), items)
}

const ophthalmologyOCTTitle = "OCT (Klinika za ocne bolesti)"

func applyCT(e *evaluation) {
	items := e.matching(isCTItem)
	e.force(combinedInvestigationAnswer("CT", items), items)
	if !e.intent.OnlyCT {
		return
	}
	e.related = sortItems(filter(e.visible, func(it Item) bool { return isOCTItem(it) && isOphthalmologyClinic(it) }))
	if len(e.related) > 0 {
		title := ophthalmologyOCTTitle
		e.relatedTitle = &title
	}
}

func applyUltrasound(e *evaluation) {
	items := e.matching(isUltrasoundItem)
	e.force(combinedInvestigationAnswer("UZ / DOPLER", items), items)
}

// applyEndocrinologyVisits narrows a plain endocrinology query to the numbered
// outpatient visits when the report has them.
func applyEndocrinologyVisits(e *evaluation) {
	visits := filter(e.items, func(it Item) bool {
		return it.SlotKind == KindSpecialistVisit &&
			strings.Contains(it.specialist, "endokrinol") &&
			strings.Contains(it.specialist, "ambulanta")
	})
	if len(visits) == 0 {
		return
	}
	numbered := filter(visits, func(it Item) bool { return numberedRaw.MatchString(it.Specialist) })
	if len(numbered) > 0 {
		e.items = numbered
		return
	}
	e.items = visits
}

func applyEndocrinology(e *evaluation) {
	primary := filter(e.visible, isPrimaryEndocrinologyAmbulanta)
	if len(primary) == 0 {
		return
	}
	sort.SliceStable(primary, func(i, j int) bool {
		ri, rj := ambulantaRank(primary[i].Specialist), ambulantaRank(primary[j].Specialist)
		if ri != rj {
			return ri < rj
		}
		return primary[i].Specialist < primary[j].Specialist
	})
	e.force(endocrinologyAnswer(primary), primary)
	e.related = sortItems(filter(e.visible, isRelatedEndocrinologyItem))
}

func applyCardiology(e *evaluation) {
	universe := e.matching(isCardiologyUniverseItem)
	var primary, related []Item
	for _, it := range universe {
		if isPrimaryCardiologyItem(it) {
			primary = append(primary, it)
		} else {
			related = append(related, it)
		}
	}
	if len(primary) == 0 {
		return
	}
	e.force(cardiologyAnswer(primary), primary)
	e.related = related
}
