package rulespec

// Deduplicate removes rules whose id reappears later in the document list,
// so the last occurrence of every id wins. Documents left without rules are
// dropped. The input documents are not modified; applying Deduplicate to its
// own output returns an equivalent list.
func Deduplicate(docs []*Document) []*Document {
	type position struct{ doc, rule int }

	last := make(map[string]position)
	removed := make(map[position]bool)
	for di, d := range docs {
		if d == nil {
			continue
		}
		for ri, r := range d.Rules {
			if prev, ok := last[r.ID]; ok {
				removed[prev] = true
			}
			last[r.ID] = position{di, ri}
		}
	}

	out := make([]*Document, 0, len(docs))
	for di, d := range docs {
		if d == nil {
			continue
		}
		kept := make([]Rule, 0, len(d.Rules))
		for ri, r := range d.Rules {
			if !removed[position{di, ri}] {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			continue
		}
		cp := *d
		cp.Rules = kept
		out = append(out, &cp)
	}
	return out
}
