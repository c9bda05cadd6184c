package persona

import (
	"strings"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

// Rule attributes a reply to a persona when any keyword occurs in the text.
type Rule struct {
	Keywords []string
	Persona  contractx.Persona
}

// DefaultRules are checked in order; the first match wins.
var DefaultRules = []Rule{
	{Keywords: []string{"schedule", "appointment"}, Persona: contractx.PersonaScheduling},
	{Keywords: []string{"invoice", "bill"}, Persona: contractx.PersonaBilling},
	{Keywords: []string{"register", "patient"}, Persona: contractx.PersonaRegistration},
	{Keywords: []string{"medical", "history"}, Persona: contractx.PersonaRecords},
}

// Keyword is a substring heuristic over the final reply text. Matching is
// case-sensitive.
type Keyword struct {
	Rules    []Rule
	Fallback contractx.Persona
}

var _ contractx.PersonaClassifier = Keyword{}

func (k Keyword) Classify(text string) contractx.Persona {
	rules := k.Rules
	if rules == nil {
		rules = DefaultRules
	}
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Persona
			}
		}
	}
	if k.Fallback != "" {
		return k.Fallback
	}
	return contractx.PersonaOrchestrator
}

// Func adapts a plain function to PersonaClassifier.
type Func func(text string) contractx.Persona

func (f Func) Classify(text string) contractx.Persona {
	return f(text)
}
