package analyzer

import (
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/japaniel/newsvocab/pkg/vocab"
)

// proseEngine tags English with prose's averaged perceptron. The model is
// loaded once when the engine is opened and shared by every Tag call.
type proseEngine struct {
	model *prose.Model
	lex   Lexicon
}

func openProse(lex Lexicon) (Engine, error) {
	doc, err := prose.NewDocument(warmupText,
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, err
	}
	return &proseEngine{model: doc.Model, lex: lex}, nil
}

func (e *proseEngine) Name() string { return ModelProse }

func (e *proseEngine) Tag(sentence string) ([]Tagged, error) {
	doc, err := prose.NewDocument(sentence,
		prose.UsingModel(e.model),
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, err
	}
	toks := doc.Tokens()
	out := make([]Tagged, 0, len(toks))
	for _, t := range toks {
		pos, proper := mapPennTag(t.Tag)
		out = append(out, Tagged{
			Text:   t.Text,
			Lemma:  lemmatize(t.Text, t.Tag, e.lex),
			POS:    pos,
			Proper: proper,
		})
	}
	return out, nil
}

func (e *proseEngine) Close() error {
	e.model = nil
	return nil
}

// mapPennTag folds a Penn Treebank tag into the pipeline tagset.
func mapPennTag(tag string) (vocab.POS, bool) {
	switch {
	case tag == "NNP" || tag == "NNPS":
		return vocab.Noun, true
	case strings.HasPrefix(tag, "NN"):
		return vocab.Noun, false
	case strings.HasPrefix(tag, "VB"):
		return vocab.Verb, false
	case strings.HasPrefix(tag, "JJ"):
		return vocab.Adj, false
	case tag == "RB" || tag == "RBR" || tag == "RBS":
		return vocab.Adv, false
	}
	return vocab.Other, false
}
