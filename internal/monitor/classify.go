package monitor

// ClassifierConfig holds the tunables deciding what counts as a significant
// change. Zero values fall back to defaults via withDefaults.
//
// Defaults:
//   - min_change_length: 2 (length deltas below this are noise)
//   - similarity_threshold: 0.92 (changes more similar than this are noise)
//   - jaccard_fallback_length: 2000 (inputs longer than this switch from
//     Levenshtein to character-set Jaccard, trading precision for speed)
type ClassifierConfig struct {
	MinChangeLength       int
	SimilarityThreshold   float64
	JaccardFallbackLength int
}

func (c ClassifierConfig) withDefaults() ClassifierConfig {
	if c.MinChangeLength <= 0 {
		c.MinChangeLength = 2
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = 0.92
	}
	if c.JaccardFallbackLength <= 0 {
		c.JaccardFallbackLength = 2000
	}
	return c
}

// Classifier decides whether a newly sampled snapshot differs meaningfully
// from the previous one. It is pure: no I/O, no shared state, deterministic
// for identical inputs.
type Classifier struct {
	cfg ClassifierConfig
}

func NewClassifier(cfg ClassifierConfig) Classifier {
	return Classifier{cfg: cfg.withDefaults()}
}

// IsSignificantChange reports whether new represents a change worth emitting.
//
// Rules, in order:
//   - identical snapshots (including both absent) are never significant
//   - content appearing or clearing is always significant
//   - a length delta below MinChangeLength is noise
//   - otherwise the similarity score decides: significant iff
//     sim(old,new) < SimilarityThreshold
func (c Classifier) IsSignificantChange(old, new Snapshot) bool {
	if old.Equal(new) {
		return false
	}

	// Presence flip: appearance/clearing is significant as long as the
	// present side actually carries content.
	if old.Present != new.Present {
		if new.Present {
			return new.Len() > 0
		}
		return old.Len() > 0
	}

	oldLen := old.Len()
	newLen := new.Len()
	delta := oldLen - newLen
	if delta < 0 {
		delta = -delta
	}
	if delta < c.cfg.MinChangeLength {
		return false
	}

	maxLen := oldLen
	if newLen > maxLen {
		maxLen = newLen
	}
	var sim float64
	if maxLen > c.cfg.JaccardFallbackLength {
		sim = jaccardSimilarity(old.Content, new.Content)
	} else {
		sim = levenshteinSimilarity(old.Content, new.Content)
	}
	return sim < c.cfg.SimilarityThreshold
}

// levenshteinSimilarity returns a normalized [0,1] score:
// (maxLen - editDistance) / maxLen. 1 means identical, 0 means nothing shared.
func levenshteinSimilarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(ra, rb)
	return float64(maxLen-dist) / float64(maxLen)
}

// levenshtein computes edit distance with the standard two-row DP.
// O(n*m) time, O(min(n,m)) space; inputs are bounded by the engine's
// content length cap.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	// Keep the shorter string on the row axis.
	if len(a) < len(b) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// jaccardSimilarity is the cheap large-input fallback: intersection over
// union of the two rune sets. Far coarser than edit distance, but O(n+m).
func jaccardSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	sa := make(map[rune]struct{})
	for _, r := range a {
		sa[r] = struct{}{}
	}
	sb := make(map[rune]struct{})
	for _, r := range b {
		sb[r] = struct{}{}
	}
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for r := range sa {
		if _, ok := sb[r]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}
