package vocab

// FrequencyTable maps words to ids and occurrence counts. It is built once
// from a corpus scan and never modified afterwards.
type FrequencyTable struct {
	word2id      map[string]int
	id2word      []string
	counts       []int
	total        int64
	maxDocLength int
}

// Build scans docs and keeps every word seen at least minCount times. Ids
// follow first-occurrence order.
func Build(docs [][]string, minCount int) *FrequencyTable {
	raw := make(map[string]int)
	var order []string
	maxDocLength := 0

	for _, doc := range docs {
		if len(doc) > maxDocLength {
			maxDocLength = len(doc)
		}
		for _, term := range doc {
			if _, exists := raw[term]; !exists {
				order = append(order, term)
			}
			raw[term]++
		}
	}

	t := &FrequencyTable{
		word2id:      make(map[string]int),
		maxDocLength: maxDocLength,
	}
	for _, term := range order {
		count := raw[term]
		if count < minCount {
			continue
		}
		t.word2id[term] = len(t.id2word)
		t.id2word = append(t.id2word, term)
		t.counts = append(t.counts, count)
		t.total += int64(count)
	}
	return t
}

// Len returns the vocabulary size.
func (t *FrequencyTable) Len() int {
	return len(t.id2word)
}

// ID returns the id of word.
func (t *FrequencyTable) ID(word string) (int, bool) {
	id, ok := t.word2id[word]
	return id, ok
}

// Word returns the word with the given id.
func (t *FrequencyTable) Word(id int) string {
	return t.id2word[id]
}

// Words returns the vocabulary in id order. The slice must not be modified.
func (t *FrequencyTable) Words() []string {
	return t.id2word
}

// Count returns the number of occurrences of id.
func (t *FrequencyTable) Count(id int) int {
	return t.counts[id]
}

// Total returns the number of kept word occurrences.
func (t *FrequencyTable) Total() int64 {
	return t.total
}

// Frequency returns the relative frequency of id.
func (t *FrequencyTable) Frequency(id int) float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.counts[id]) / float64(t.total)
}

// MaxDocLength returns the largest number of words seen in one document.
func (t *FrequencyTable) MaxDocLength() int {
	return t.maxDocLength
}

// IDs maps words to ids, dropping words outside the vocabulary.
func (t *FrequencyTable) IDs(words []string) []int {
	ids := make([]int, 0, len(words))
	for _, w := range words {
		if id, ok := t.word2id[w]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
