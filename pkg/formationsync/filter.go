package formationsync

import (
	"time"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/wordpress"
)

// filter resolves member term ids and applies the formation settings
type filter struct {
	terms      map[string]map[int64]wordpress.Term
	restBases  map[string]string
	states     map[string]bool
	provinces  map[string]bool
	unresolved int
}

func newFilter(settings *model.FormationSettings, byTaxonomy map[string][]wordpress.Term, restBases map[string]string) *filter {
	f := &filter{
		terms:     map[string]map[int64]wordpress.Term{},
		restBases: restBases,
		states:    toSet(settings.IncludedStates),
		provinces: toSet(settings.IncludedProvinces),
	}
	for taxonomy, terms := range byTaxonomy {
		index := make(map[int64]wordpress.Term, len(terms))
		for _, t := range terms {
			index[t.ID] = t
		}
		f.terms[taxonomy] = index
	}
	return f
}

// resolve maps a member's term ids in taxonomy to terms, counting unknown ids
func (f *filter) resolve(m *wordpress.Member, taxonomy string) []wordpress.Term {
	ids := m.TermIDs(f.restBases[taxonomy])
	resolved := make([]wordpress.Term, 0, len(ids))
	for _, id := range ids {
		t, ok := f.terms[taxonomy][id]
		if !ok {
			f.unresolved++
			continue
		}
		resolved = append(resolved, t)
	}
	return resolved
}

// build returns the directory row of m, or false when m is outside the formation settings
func (f *filter) build(m *wordpress.Member, now time.Time) (model.ConfrereInFormation, bool) {
	states := f.resolve(m, TaxonomyFormationState)
	provinces := f.resolve(m, TaxonomyProvince)
	positions := f.resolve(m, TaxonomyPosition)

	if len(states) == 0 {
		return model.ConfrereInFormation{}, false
	}

	stateSlugs := make([]string, 0, len(states))
	primary := ""
	for _, s := range states {
		stateSlugs = append(stateSlugs, s.Slug)
		if primary == "" && (len(f.states) == 0 || f.states[s.Slug]) {
			primary = s.Slug
		}
	}
	if primary == "" {
		return model.ConfrereInFormation{}, false
	}

	// The stored province is the first one the settings include
	var province wordpress.Term
	matched := len(f.provinces) == 0
	for _, p := range provinces {
		if len(f.provinces) == 0 || f.provinces[p.Slug] {
			province, matched = p, true
			break
		}
	}
	if !matched {
		return model.ConfrereInFormation{}, false
	}

	positionNames := make([]string, 0, len(positions))
	for _, p := range positions {
		positionNames = append(positionNames, wordpress.PlainText(p.Name))
	}

	return model.ConfrereInFormation{
		WPID:            m.ID,
		Name:            m.Name(),
		Slug:            m.Slug,
		Email:           m.Field(FieldEmail),
		PhotoURL:        m.Field(FieldPhoto),
		Link:            m.Link,
		Province:        wordpress.PlainText(province.Name),
		ProvinceSlug:    province.Slug,
		Positions:       positionNames,
		FormationStates: stateSlugs,
		FormationState:  primary,
		BirthDate:       m.Field(FieldBirthDate),
		WPModifiedAt:    m.ModifiedAt(),
		SyncedAt:        now,
	}, true
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
