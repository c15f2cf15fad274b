package retrieval

import (
	"math"
	"sort"
	"strings"

	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

const hybridBoost = 1.10

// normalizeFTSRank converts an FTS5 rank (negative, more negative is
// better) into a [0,1] score (§4.5.5).
func normalizeFTSRank(rank float64) float64 {
	return math.Exp(-0.3 * math.Abs(rank))
}

// normalizeVectorDistance converts a cosine distance in [0,2] into a
// [0,1] similarity (§4.5.5).
func normalizeVectorDistance(d float64) float64 {
	v := 1 - d/2
	if v < 0 {
		return 0
	}
	return v
}

// candidate is a pre-fusion accumulator for one document id.
type candidate struct {
	id          string
	docType     store.DocType
	content     string
	sourceFile  string
	concepts    []string
	project     *string
	ftsScore    *float64
	vectorScore *float64
}

// fuse combines keyword and vector hits into a single ranked,
// deduplicated-by-id list (§4.5.5-§4.5.7). Either input may be nil/empty.
func fuse(ftsRows []store.KeywordRow, vec vectorbackend.QueryResult, w Weights) []Result {
	byID := make(map[string]*candidate)
	order := make([]string, 0, len(ftsRows)+len(vec.IDs))

	for _, row := range ftsRows {
		score := normalizeFTSRank(row.Rank)
		c, ok := byID[row.ID]
		if !ok {
			c = &candidate{
				id:         row.ID,
				docType:    row.Type,
				content:    row.Content,
				sourceFile: row.SourceFile,
				concepts:   row.Concepts,
			}
			if row.Project != "" {
				p := row.Project
				c.project = &p
			}
			byID[row.ID] = c
			order = append(order, row.ID)
		}
		c.ftsScore = &score
	}

	for i, id := range vec.IDs {
		var distance float64
		if i < len(vec.Distances) {
			distance = vec.Distances[i]
		}
		score := normalizeVectorDistance(distance)

		c, ok := byID[id]
		if !ok {
			c = &candidate{id: id}
			if i < len(vec.Documents) {
				c.content = vec.Documents[i]
			}
			if i < len(vec.Metadatas) {
				meta := vec.Metadatas[i]
				c.docType = store.DocType(meta["type"])
				c.sourceFile = meta["source_file"]
				c.concepts = splitConceptsList(meta["concepts"])
				if p, ok := meta["project"]; ok && p != "" {
					proj := p
					c.project = &proj
				}
			}
			byID[id] = c
			order = append(order, id)
		}
		c.vectorScore = &score
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		c := byID[id]
		score, source := fuseScore(c.ftsScore, c.vectorScore, w)
		results = append(results, Result{
			ID:          c.id,
			Type:        c.docType,
			Content:     truncate(c.content, 500),
			SourceFile:  c.sourceFile,
			Concepts:    c.concepts,
			Project:     c.project,
			Source:      source,
			Score:       score,
			FTSScore:    c.ftsScore,
			VectorScore: c.vectorScore,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// fuseScore applies the hybrid fusion rule (§4.5.5): when both signals are
// present the weighted sum is boosted by 1.10 and capped at 1.0.
func fuseScore(fts, vector *float64, w Weights) (float64, Source) {
	switch {
	case fts != nil && vector != nil:
		score := (w.Fts*(*fts) + w.Vector*(*vector)) * hybridBoost
		if score > 1.0 {
			score = 1.0
		}
		return score, SourceHybrid
	case fts != nil:
		return w.Fts * (*fts), SourceFTS
	case vector != nil:
		return w.Vector * (*vector), SourceVector
	default:
		return 0, SourceHybrid
	}
}

// paginate slices a sorted result list to [offset, offset+limit) and
// reports whether more results follow.
func paginate(results []Result, offset, limit int) (page []Result, hasMore bool) {
	if offset >= len(results) {
		return nil, false
	}
	end := offset + limit
	if end >= len(results) {
		end = len(results)
		hasMore = false
	} else {
		hasMore = true
	}
	return results[offset:end], hasMore
}

func splitConceptsList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Fields(s)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
