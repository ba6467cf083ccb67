package analyzer

import "strings"

var irregularVerbs = map[string]string{
	"am": "be", "is": "be", "are": "be", "was": "be", "were": "be", "been": "be", "being": "be",
	"has": "have", "had": "have", "having": "have",
	"does": "do", "did": "do", "done": "do",
	"went": "go", "gone": "go", "goes": "go",
	"said": "say", "says": "say",
	"made": "make", "took": "take", "taken": "take", "came": "come",
	"saw": "see", "seen": "see", "got": "get", "gotten": "get",
	"gave": "give", "given": "give", "found": "find", "thought": "think",
	"told": "tell", "became": "become", "left": "leave", "felt": "feel",
	"brought": "bring", "began": "begin", "begun": "begin", "kept": "keep",
	"held": "hold", "wrote": "write", "written": "write", "stood": "stand",
	"heard": "hear", "meant": "mean", "met": "meet", "ran": "run",
	"paid": "pay", "sat": "sit", "spoke": "speak", "spoken": "speak",
	"led": "lead", "grew": "grow", "grown": "grow", "lost": "lose",
	"fell": "fall", "fallen": "fall", "sent": "send", "built": "build",
	"understood": "understand", "drew": "draw", "drawn": "draw",
	"broke": "break", "broken": "break", "spent": "spend", "rose": "rise",
	"risen": "rise", "drove": "drive", "driven": "drive", "bought": "buy",
	"wore": "wear", "worn": "wear", "chose": "choose", "chosen": "choose",
	"sought": "seek", "threw": "throw", "thrown": "throw", "caught": "catch",
	"dealt": "deal", "won": "win", "fought": "fight", "taught": "teach",
	"sold": "sell", "struck": "strike", "knew": "know", "known": "know",
	"shown": "show", "flew": "fly", "flown": "fly", "ate": "eat", "eaten": "eat",
	"forgot": "forget", "forgotten": "forget", "hid": "hide", "hidden": "hide",
	"arose": "arise", "arisen": "arise", "bore": "bear", "borne": "bear",
	"swore": "swear", "sworn": "swear", "withdrew": "withdraw", "withdrawn": "withdraw",
	"undertook": "undertake", "undertaken": "undertake", "overcame": "overcome",
	"shook": "shake", "shaken": "shake", "froze": "freeze", "frozen": "freeze",
	"stole": "steal", "stolen": "steal", "fed": "feed", "fled": "flee",
	"bent": "bend", "lent": "lend", "slid": "slide", "spun": "spin",
}

var irregularNouns = map[string]string{
	"men": "man", "women": "woman", "children": "child", "feet": "foot",
	"teeth": "tooth", "mice": "mouse", "geese": "goose",
	"crises": "crisis", "analyses": "analysis", "theses": "thesis",
	"criteria": "criterion", "phenomena": "phenomenon", "hypotheses": "hypothesis",
	"diagnoses": "diagnosis", "emphases": "emphasis", "bases": "basis",
}

var irregularGrades = map[string]string{
	"better": "good", "best": "good", "worse": "bad", "worst": "bad",
	"further": "far", "furthest": "far", "farther": "far", "farthest": "far",
	"less": "little", "least": "little",
}

// lemmatize maps an inflected English form to its dictionary form using the
// Penn tag to pick the rule family. Candidates are checked against lex when
// one is provided; otherwise the first rule-based candidate wins.
func lemmatize(word, tag string, lex Lexicon) string {
	w := strings.ToLower(word)
	if w == "" {
		return w
	}
	switch {
	case tag == "NNS" || tag == "NNPS":
		if base, ok := irregularNouns[w]; ok {
			return base
		}
		return choose(w, pluralCandidates(w), lex)
	case strings.HasPrefix(tag, "VB"):
		if base, ok := irregularVerbs[w]; ok {
			return base
		}
		switch tag {
		case "VBZ":
			return choose(w, pluralCandidates(w), lex)
		case "VBG":
			return choose(w, suffixCandidates(w, "ing"), lex)
		case "VBD", "VBN":
			return choose(w, pastCandidates(w), lex)
		}
	case tag == "JJR" || tag == "JJS" || tag == "RBR" || tag == "RBS":
		if base, ok := irregularGrades[w]; ok {
			return base
		}
		if strings.HasSuffix(w, "est") {
			return choose(w, gradeCandidates(w, "est"), lex)
		}
		if strings.HasSuffix(w, "er") {
			return choose(w, gradeCandidates(w, "er"), lex)
		}
	}
	return w
}

func choose(word string, candidates []string, lex Lexicon) string {
	if len(candidates) == 0 {
		return word
	}
	if lex != nil {
		for _, c := range candidates {
			if lex.Contains(c) {
				return c
			}
		}
		if lex.Contains(word) {
			return word
		}
	}
	return candidates[0]
}

func pluralCandidates(w string) []string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return []string{w[:len(w)-3] + "y"}
	case strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "zzes"):
		return []string{w[:len(w)-2]}
	case strings.HasSuffix(w, "oes") && len(w) > 4:
		return []string{w[:len(w)-2], w[:len(w)-1]}
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return nil
	case strings.HasSuffix(w, "s") && len(w) > 3:
		return []string{w[:len(w)-1]}
	}
	return nil
}

func pastCandidates(w string) []string {
	switch {
	case strings.HasSuffix(w, "ied") && len(w) > 4:
		return []string{w[:len(w)-3] + "y"}
	case strings.HasSuffix(w, "ed") && len(w) > 4:
		return suffixCandidates(w, "ed")
	}
	return nil
}

// suffixCandidates strips suffix and proposes the bare stem, the stem with a
// doubled final consonant undone, and the stem with a silent e restored. The
// most likely form is listed first.
func suffixCandidates(w, suffix string) []string {
	if !strings.HasSuffix(w, suffix) || len(w) <= len(suffix)+2 {
		return nil
	}
	stem := w[:len(w)-len(suffix)]
	var out []string
	if undoubled, ok := undouble(stem); ok {
		out = append(out, undoubled, stem)
	} else if needsSilentE(stem) {
		out = append(out, stem+"e", stem)
	} else {
		out = append(out, stem, stem+"e")
	}
	return out
}

func gradeCandidates(w, suffix string) []string {
	stem := w[:len(w)-len(suffix)]
	if len(stem) < 2 {
		return nil
	}
	if strings.HasSuffix(stem, "i") {
		return []string{stem[:len(stem)-1] + "y"}
	}
	return suffixCandidates(w, suffix)
}

func undouble(stem string) (string, bool) {
	n := len(stem)
	if n < 3 || stem[n-1] != stem[n-2] {
		return "", false
	}
	if strings.IndexByte("bdgmnprt", stem[n-1]) < 0 {
		return "", false
	}
	return stem[:n-1], true
}

func needsSilentE(stem string) bool {
	if strings.HasSuffix(stem, "v") || strings.HasSuffix(stem, "iz") ||
		strings.HasSuffix(stem, "uc") || strings.HasSuffix(stem, "rg") ||
		strings.HasSuffix(stem, "dg") {
		return true
	}
	// "-at" after a consonant or an i, as in "debat(ing)" or "negotiat(ed)"
	n := len(stem)
	if n >= 4 && strings.HasSuffix(stem, "at") && !isVowel(stem[n-3]) {
		return true
	}
	return n >= 5 && strings.HasSuffix(stem, "at") && stem[n-3] == 'i'
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}
