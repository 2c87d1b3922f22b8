// Package history persists finished conversations so they can be listed,
// resumed with -c, and cleaned up by ID, list, or range.
package history

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/kadirpekel/scout/pkg/llm"
)

// ErrInvalidRange reports a cleanup spec that is not "all", an ID, a comma
// list, or an inclusive "A-B" range.
var ErrInvalidRange = errors.New("invalid cleanup spec")

// Interaction is one saved conversation: the user's query, the final
// answer, and the full turn sequence for resumption.
type Interaction struct {
	ID          int64
	SessionID   string
	SessionName string
	Model       string
	Query       string
	Answer      string
	Turns       []llm.Message
	CreatedAt   time.Time
}

const sessionNameWords = 2

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

// Filtered out of generated session names.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "shall": {}, "can": {},
	"need": {}, "dare": {}, "ought": {}, "used": {}, "to": {}, "of": {},
	"in": {}, "for": {}, "on": {}, "with": {}, "at": {}, "by": {}, "from": {},
	"as": {}, "into": {}, "through": {}, "during": {}, "before": {},
	"after": {}, "above": {}, "below": {}, "between": {}, "under": {},
	"again": {}, "further": {}, "then": {}, "once": {}, "here": {},
	"there": {}, "when": {}, "where": {}, "why": {}, "how": {}, "all": {},
	"each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {},
	"such": {}, "no": {}, "nor": {}, "not": {}, "only": {}, "own": {},
	"same": {}, "so": {}, "than": {}, "too": {}, "very": {}, "just": {},
	"also": {}, "now": {}, "what": {}, "which": {}, "who": {}, "whom": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "am": {}, "and": {},
	"but": {}, "if": {}, "or": {}, "because": {}, "while": {},
	"although": {}, "i": {}, "me": {}, "my": {}, "myself": {}, "we": {},
	"our": {}, "ours": {}, "ourselves": {}, "you": {}, "your": {},
	"yours": {}, "yourself": {}, "yourselves": {}, "he": {}, "him": {},
	"his": {}, "himself": {}, "she": {}, "her": {}, "hers": {},
	"herself": {}, "it": {}, "its": {}, "itself": {}, "they": {},
	"them": {}, "their": {}, "theirs": {}, "themselves": {}, "about": {},
	"tell": {},
}

// SessionName builds a short slug from the first meaningful words of a
// query: "what is the meaning of life" becomes "meaning_life".
func SessionName(query string) string {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)

	var selected []string
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		selected = append(selected, w)
		if len(selected) == sessionNameWords {
			break
		}
	}

	if len(selected) == 0 {
		return "session"
	}

	return strings.Join(selected, "_")
}
