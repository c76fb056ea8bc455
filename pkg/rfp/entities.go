package rfp

import (
	"regexp"
	"strings"

	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+\d{1,2},?\s+\d{4}\b`),
	}

	standardPattern = regexp.MustCompile(`\b(?:NIST|ISO|IEEE|FIPS|MIL-STD|DoD|FAR|DFARS)[\s-]*\d[\d.\-]*`)

	acronymPattern = regexp.MustCompile(`\b[A-Z]{2,6}\b`)

	// all-caps words that are emphasis, not acronyms
	acronymStopWords = map[string]bool{
		"SHALL": true, "MUST": true, "WILL": true, "MAY": true, "NOT": true,
		"THE": true, "AND": true, "FOR": true, "ALL": true, "ANY": true,
		"OR": true, "OF": true, "TO": true, "IN": true, "ON": true, "AT": true,
		"BE": true, "IS": true, "NO": true, "AN": true, "BY": true,
	}
)

// ExtractEntities pulls dates, standards references and acronyms out of text.
// Every class is present in the result, possibly empty. Matches keep first-seen order.
func ExtractEntities(text string) map[string][]string {
	entities := map[string][]string{
		models.EntityDates:     {},
		models.EntityStandards: {},
		models.EntityAcronyms:  {},
	}

	seen := make(map[string]bool)
	add := func(class, value string) {
		key := class + "\x00" + value
		if value == "" || seen[key] {
			return
		}
		seen[key] = true
		entities[class] = append(entities[class], value)
	}

	for _, p := range datePatterns {
		for _, m := range p.FindAllString(text, -1) {
			add(models.EntityDates, m)
		}
	}
	for _, m := range standardPattern.FindAllString(text, -1) {
		add(models.EntityStandards, strings.TrimRight(m, ".-"))
	}
	for _, m := range acronymPattern.FindAllString(text, -1) {
		if !acronymStopWords[m] {
			add(models.EntityAcronyms, m)
		}
	}

	return entities
}
