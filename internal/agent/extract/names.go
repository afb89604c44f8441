package extract

import (
	"regexp"
	"strings"
)

// purchaseKeywords mark an explicit purchase intent; text after the keyword
// is where the product name is expected.
var purchaseKeywords = []string{
	"buy",
	"purchase",
	"looking for",
	"interested in",
	"want to get",
}

// insignificantWords are skipped when extending a one-word name with the
// following word.
var insignificantWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true, "with": true,
}

const maxRawNameLen = 30

// capitalizedPhraseRe matches a capitalized word optionally followed by
// further words, covering both brand names ("Apple Watch") and binomial
// scientific names ("Pyrus calleryana").
var capitalizedPhraseRe = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Za-z][a-z]+)*`)

// ExplicitMention scans user turns for purchase-intent keywords and derives
// the name from the text that follows. Preference order within a hit: a
// capitalized phrase from the turn that reappears in the trailing text, then
// text after a colon, then the first one-or-two significant trailing words.
func ExplicitMention(t Turns) (string, bool) {
	for _, msg := range t.User {
		lowered := strings.ToLower(msg)
		for _, keyword := range purchaseKeywords {
			idx := strings.Index(lowered, keyword)
			if idx < 0 {
				continue
			}
			after := trimEdgePunct(lowered[idx+len(keyword):])
			if after == "" {
				continue
			}

			for _, phrase := range capitalizedPhraseRe.FindAllString(msg, -1) {
				if len(phrase) > 2 && strings.Contains(after, strings.ToLower(phrase)) {
					return phrase, true
				}
			}

			if colon := strings.Index(after, ":"); colon >= 0 {
				if rest := strings.TrimSpace(after[colon+1:]); rest != "" {
					return rest, true
				}
			}

			if len(after) > 2 {
				words := strings.Fields(after)
				if len(words) > 0 && len(words[0]) > 2 {
					name := words[0]
					if len(words) > 1 && !insignificantWords[strings.ToLower(words[1])] {
						name += " " + words[1]
					}
					return name, true
				}
				if len(after) > maxRawNameLen {
					return after[:maxRawNameLen], true
				}
				return after, true
			}
		}
	}
	return "", false
}

var (
	// binomialRe is a heuristic for scientific names: one capitalized word
	// followed by one lowercase word.
	binomialRe = regexp.MustCompile(`[A-Z][a-z]+ [a-z]+`)
	quotedRe   = regexp.MustCompile(`"([^"]+)"`)
	// measurementRe matches a dimensional token such as "90cm height" or
	// "90-120cm tall".
	measurementRe = regexp.MustCompile(`(?i)\d+(?:\s*-\s*\d+)?\s*(?:cm|mm|m|inches|in|ft|")\s*(?:height|width|tall|long)`)
)

// shortTurnWordLimit bounds the measurement-stripping fallback to turns that
// are plausibly just "product + dimensions".
const shortTurnWordLimit = 20

// PatternFallback tries, per user turn, a binomial capitalized phrase, then a
// double-quoted phrase, then the measurement-stripping fallback for short
// turns that contain a dimensional token.
func PatternFallback(t Turns) (string, bool) {
	for _, msg := range t.User {
		if m := binomialRe.FindString(msg); m != "" {
			return m, true
		}
		if m := quotedRe.FindStringSubmatch(msg); m != nil {
			return m[1], true
		}
		if measurementRe.MatchString(msg) && len(strings.Fields(msg)) < shortTurnWordLimit {
			remainder := trimEdgePunct(measurementRe.ReplaceAllString(msg, ""))
			if len(remainder) > 2 {
				return remainder, true
			}
		}
	}
	return "", false
}

// confirmationRes are the phrase templates the assistant uses when restating
// what the user asked for, in priority order.
var confirmationRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)you're looking for (?:a|an) ([^.,!?]+)`),
	regexp.MustCompile(`(?i)you want to buy (?:a|an) ([^.,!?]+)`),
	regexp.MustCompile(`(?i)interested in (?:a|an) ([^.,!?]+)`),
	regexp.MustCompile(`(?i)you're interested in (?:the|a|an) ([^.,!?]+)`),
	regexp.MustCompile(`(?i)you'd like to purchase (?:a|an) ([^.,!?]+)`),
}

// parentheticalRe catches formal names the assistant restates in parentheses.
var parentheticalRe = regexp.MustCompile(`\(([^)]+)\)`)

// AssistantConfirmation is the last-resort strategy: it trusts the
// assistant's own confirmations of what the user wants.
func AssistantConfirmation(t Turns) (string, bool) {
	for _, msg := range t.Assistant {
		for _, re := range confirmationRes {
			if m := re.FindStringSubmatch(msg); m != nil {
				return strings.TrimSpace(m[1]), true
			}
		}
		if m := parentheticalRe.FindStringSubmatch(msg); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}
