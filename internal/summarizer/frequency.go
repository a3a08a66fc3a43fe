package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	defaultSentences = 3
	// Lines without terminal punctuation longer than this are treated as sentences.
	minLineSentence = 40
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]+`)
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\d+`)
)

// Frequency picks the sentences whose words recur most often across the
// document. Used to fill the stored summary of an uploaded file.
type Frequency struct {
	stopwords map[string]struct{}
}

func New() *Frequency {
	return &Frequency{stopwords: stopwords()}
}

func (f *Frequency) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = defaultSentences
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	tokenized := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokenized[i] = f.tokens(sent)
		for _, tok := range tokenized[i] {
			freq[tok]++
		}
	}
	peak := 0.0
	for _, v := range freq {
		peak = math.Max(peak, v)
	}

	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, toks := range tokenized {
		s := 0.0
		for _, tok := range toks {
			s += freq[tok] / peak
		}
		if n := len(toks); n > 0 {
			s /= math.Sqrt(float64(n))
		}
		scores[i] = ranked{idx: i, score: s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	picked := make([]int, maxSentences)
	for i := range picked {
		picked[i] = scores[i].idx
	}
	sort.Ints(picked)
	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

// splitSentences handles both prose and the line-oriented text OCR produces.
func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		found := sentencePattern.FindAllString(line, -1)
		rest := line
		for _, s := range found {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			rest = strings.Replace(rest, s, "", 1)
		}
		if rest = strings.TrimSpace(rest); len(rest) >= minLineSentence {
			out = append(out, rest)
		}
	}
	return out
}

func (f *Frequency) tokens(text string) []string {
	all := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, tok := range all {
		if _, stop := f.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these", "those", "from",
		"into", "about", "between", "during", "before", "after", "so", "such", "than", "too", "very", "can",
		"will", "should", "shall", "may", "all", "any", "each", "their", "there", "who", "which", "also",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
