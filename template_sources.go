package shardtree

// CopySources derives the weighted data-migration sources of a template.
// Each concrete source maps to its proportional share of the multiplier.
// ReadOnly, WriteOnly and Blocked subtrees hold no data to copy from and
// yield nothing. Structurally identical sub-templates collapse to a single
// entry.
func (t *Template) CopySources(multiplier float64) map[*Template]float64 {
	acc := map[string]sourceShare{}
	t.copySources(acc, multiplier)
	sources := make(map[*Template]float64, len(acc))
	for _, s := range acc {
		sources[s.template] = s.share
	}
	return sources
}

type sourceShare struct {
	template *Template
	share    float64
}

func (t *Template) copySources(acc map[string]sourceShare, multiplier float64) {
	switch t.ShortKind() {
	case KindReadOnly, KindWriteOnly, KindBlocked:
		return
	}
	if t.IsConcrete() {
		acc[t.Signature()] = sourceShare{t, multiplier}
		return
	}
	var total int
	for _, c := range t.children {
		total += c.weight
	}
	for _, c := range t.children {
		var share float64
		if total > 0 {
			share = float64(c.weight) / float64(total) * multiplier
		}
		c.copySources(acc, share)
	}
}

// CopySource picks the source carrying the minimum proportional share, the
// cheapest branch to read a migration source from. Equal shares tie-break by
// lexicographic identifier.
func (t *Template) CopySource() (source *Template, err error) {
	sources := t.CopySources(1)
	if len(sources) == 0 {
		err = ErrNoCopySource
		return
	}
	var best float64
	for tpl, share := range sources {
		if source == nil ||
			share < best ||
			(share == best && tpl.Identifier() < source.Identifier()) {
			source = tpl
			best = share
		}
	}
	return
}
