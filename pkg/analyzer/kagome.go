package analyzer

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

// kagomeEngine segments Japanese scripts with kagome and the IPA dictionary.
type kagomeEngine struct {
	t *tokenizer.Tokenizer
}

func openKagome(Lexicon) (Engine, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &kagomeEngine{t: t}, nil
}

func (e *kagomeEngine) Name() string { return ModelKagome }

func (e *kagomeEngine) Tag(sentence string) ([]Tagged, error) {
	tokens := e.t.Tokenize(sentence)
	out := make([]Tagged, 0, len(tokens))

	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features:
		// 0: POS, 1-3: sub-POS, 4: conjugation type, 5: conjugation form,
		// 6: base form, 7: reading, 8: pronunciation
		features := token.Features()

		lemma := token.Surface
		if len(features) > 6 && features[6] != "*" {
			lemma = features[6]
		}

		primary, sub := "", ""
		if len(features) > 0 {
			primary = features[0]
		}
		if len(features) > 1 {
			sub = features[1]
		}
		pos := mapIPA(primary)
		if sub == "数" {
			pos = vocab.Other
		}

		out = append(out, Tagged{
			Text:   token.Surface,
			Lemma:  lemma,
			POS:    pos,
			Proper: sub == "固有名詞",
		})
	}
	return out, nil
}

func (e *kagomeEngine) Close() error {
	e.t = nil
	return nil
}

func mapIPA(primary string) vocab.POS {
	switch primary {
	case "名詞":
		return vocab.Noun
	case "動詞":
		return vocab.Verb
	case "形容詞", "形容動詞":
		return vocab.Adj
	case "副詞":
		return vocab.Adv
	}
	return vocab.Other
}
