package difficulty

import (
	"sort"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

// EstimateCEFR maps a difficulty score onto a rough CEFR band.
//
//	>= 0.875 → C2
//	>= 0.75  → C1
//	>= 0.625 → B2
//	>= 0.5   → B1
//	>= 0.375 → A2
//	else     → A1
func EstimateCEFR(score float64) vocab.CEFR {
	switch {
	case score >= 0.875:
		return vocab.C2
	case score >= 0.75:
		return vocab.C1
	case score >= 0.625:
		return vocab.B2
	case score >= 0.5:
		return vocab.B1
	case score >= 0.375:
		return vocab.A2
	default:
		return vocab.A1
	}
}

// IsNewsCore reports whether lemma belongs to the built-in list of
// upper-intermediate current-affairs vocabulary.
func IsNewsCore(lemma string) bool {
	_, ok := newsCore[normalize(lemma)]
	return ok
}

// NewsCoreWords returns the built-in list, sorted.
func NewsCoreWords() []string {
	out := make([]string, 0, len(newsCore))
	for w := range newsCore {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

var newsCore = func() map[string]struct{} {
	words := []string{
		"acquisition", "allegation", "amendment", "antitrust", "arbitration",
		"asylum", "austerity", "autonomous", "ballistic", "benchmark",
		"bilateral", "boycott", "bureaucracy", "censorship", "ceasefire",
		"coalition", "compliance", "concession", "consensus", "constitutional",
		"contingency", "controversy", "convene", "corruption", "credential",
		"cybersecurity", "declaration", "default", "delegation", "demographic",
		"deportation", "derivative", "diplomatic", "disinformation", "disruptive",
		"diversification", "embargo", "emission", "escalation", "evacuation",
		"exemption", "expansionary", "expenditure", "extradition", "faction",
		"federal", "fiscal", "fluctuation", "formulation", "friction",
		"geopolitical", "governance", "humanitarian", "immunity", "implementation",
		"incentive", "incumbent", "indictment", "inflation", "infrastructure",
		"injunction", "integration", "intervention", "jurisdiction", "legislation",
		"legitimacy", "liquidity", "litigation", "macroeconomic", "mandate",
		"mediation", "merger", "militant", "mobilization", "monetary",
		"moratorium", "multilateral", "negotiation", "oversight", "pandemic",
		"parliamentary", "peninsula", "plaintiff", "polarization", "procurement",
		"prosecution", "ratification", "recession", "referendum", "regulatory",
		"retaliatory", "sanction", "sovereignty", "stalemate", "subsidy",
		"surveillance", "tariff", "transparency", "unilateral", "volatile",
		"withdrawal",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
