package embedding

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// TFIDF implements a simple TF-IDF vectorizer.  It builds a vocabulary from
// the corpus and computes IDF values; its state can be saved next to an index
// so later queries embed into the same space.
type TFIDF struct {
	vocabulary   map[string]int
	idf          []float64
	prepared     bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewTFIDF creates an unprepared TF-IDF embedder.
func NewTFIDF() *TFIDF {
	return &TFIDF{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *TFIDF) Name() string { return "tfidf" }

// Prepare builds the vocabulary and IDF values from the provided corpus.
func (e *TFIDF) Prepare(_ context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		// smoothed
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.prepared = true
	return nil
}

// Dimension returns the vocabulary size.
func (e *TFIDF) Dimension() int { return len(e.idf) }

// EmbedBatch computes L2-normalised TF-IDF vectors.  Texts with no known
// terms map to the zero vector.
func (e *TFIDF) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if !e.prepared {
		return nil, ErrNotPrepared
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *TFIDF) embed(text string) []float64 {
	vec := make([]float64, len(e.idf))
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}
	normalize(vec)
	return vec
}

func (e *TFIDF) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

type tfidfState struct {
	Terms []string
	IDF   []float64
}

// MarshalBinary encodes the prepared vocabulary.
func (e *TFIDF) MarshalBinary() ([]byte, error) {
	if !e.prepared {
		return nil, ErrNotPrepared
	}
	terms := make([]string, len(e.idf))
	for term, i := range e.vocabulary {
		terms[i] = term
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tfidfState{Terms: terms, IDF: e.idf}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a vocabulary saved by MarshalBinary.
func (e *TFIDF) UnmarshalBinary(data []byte) error {
	var st tfidfState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	if len(st.Terms) != len(st.IDF) {
		return errors.New("corrupt tfidf state")
	}
	e.vocabulary = make(map[string]int, len(st.Terms))
	for i, term := range st.Terms {
		e.vocabulary[term] = i
	}
	e.idf = st.IDF
	e.prepared = true
	return nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		// English
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		// Portuguese
		"o", "os", "as", "um", "uma", "uns", "umas", "e", "é", "ou", "de", "do", "da", "dos", "das", "em", "no", "na", "nos", "nas", "ao", "aos", "à", "às", "por", "pelo", "pela", "pelos", "pelas", "para", "com", "sem", "que", "se", "não", "mais", "menos", "mesmo", "seu", "sua", "seus", "suas", "ele", "ela", "eles", "elas", "você", "eu", "me", "meu", "minha", "isso", "isto", "esse", "essa", "este", "esta", "foi", "ser", "são", "está", "estão", "há", "ter", "tem", "têm", "já", "muito", "também", "quando", "como", "qual", "quais", "entre", "sobre", "até", "após", "ainda",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
