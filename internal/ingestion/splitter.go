package ingestion

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var defaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

// Splitter breaks extracted document text into overlapping chunks sized for
// embedding. Separators are tried in priority order so chunks break at
// paragraph and sentence boundaries before falling back to words and
// characters.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewSplitter() *Splitter {
	return &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   defaultSeparators,
	}
}

func NewSplitterWith(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var nextSeparators []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			nextSeparators = separators[i+1:]
			break
		}
	}

	var splits []string
	if separator == "" {
		for _, r := range text {
			splits = append(splits, string(r))
		}
	} else {
		for _, part := range strings.Split(text, separator) {
			if part != "" {
				splits = append(splits, part)
			}
		}
	}

	final := []string{}
	var goodSplits []string
	for _, sp := range splits {
		if len(sp) < s.chunkSize {
			goodSplits = append(goodSplits, sp)
			continue
		}
		if len(goodSplits) > 0 {
			final = append(final, s.mergeSplits(goodSplits, separator)...)
			goodSplits = nil
		}
		if len(nextSeparators) == 0 {
			final = append(final, sp)
		} else {
			final = append(final, s.split(sp, nextSeparators)...)
		}
	}
	if len(goodSplits) > 0 {
		final = append(final, s.mergeSplits(goodSplits, separator)...)
	}
	return final
}

// mergeSplits greedily packs splits into chunks up to chunkSize, then carries
// up to chunkOverlap of trailing content into the next chunk.
func (s *Splitter) mergeSplits(splits []string, separator string) []string {
	docs := []string{}
	var currentDoc []string
	total := 0

	for _, split := range splits {
		totalWithSplit := total + len(split)
		if len(currentDoc) > 0 {
			totalWithSplit += len(separator)
		}
		if totalWithSplit > s.chunkSize && len(currentDoc) > 0 {
			if doc := joinSplits(currentDoc, separator); doc != "" {
				docs = append(docs, doc)
			}
			for len(currentDoc) > 0 &&
				(total > s.chunkOverlap ||
					(total+len(split)+len(separator) > s.chunkSize && total > 0)) {
				total -= len(currentDoc[0])
				if len(currentDoc) > 1 {
					total -= len(separator)
				}
				currentDoc = currentDoc[1:]
			}
		}
		currentDoc = append(currentDoc, split)
		total += len(split)
		if len(currentDoc) > 1 {
			total += len(separator)
		}
	}

	if doc := joinSplits(currentDoc, separator); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func joinSplits(splits []string, separator string) string {
	return strings.TrimSpace(strings.Join(splits, separator))
}
