package mapping

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/identity-cli/internal/model"
	"github.com/sells-group/identity-cli/internal/normalize"
)

// overrideFile is the on-disk shape of one override tier.
type overrideFile struct {
	Tier    string          `yaml:"tier"`
	Entries []overrideEntry `yaml:"entries"`
}

type overrideEntry struct {
	PlanCode  string `yaml:"plan_code"`
	Name      string `yaml:"name"`
	CompanyID string `yaml:"company_id"`
}

// overrideTier holds one loaded tier with exact-match indexes.
type overrideTier struct {
	name    string
	byPlan  map[string]string
	byName  map[string]string
	entries int
}

// OverrideSet is an ordered, immutable collection of override tiers.
// Construct one per resolver instance; there is no global registry, so
// resolvers with different override sets can coexist.
type OverrideSet struct {
	tiers []overrideTier
}

// LoadOverrides reads override files in priority order (first file wins on
// conflicting matches). A malformed file is a hard error: silently ignoring
// corrupt static configuration risks systematically wrong identifiers.
func LoadOverrides(paths []string) (*OverrideSet, error) {
	set := &OverrideSet{}

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "overrides: read %s", path)
		}

		var file overrideFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, eris.Wrapf(err, "overrides: parse %s", path)
		}

		tier := overrideTier{
			name:   file.Tier,
			byPlan: make(map[string]string),
			byName: make(map[string]string),
		}
		if tier.name == "" {
			tier.name = path
		}

		for i, e := range file.Entries {
			if e.CompanyID == "" {
				return nil, eris.Errorf("overrides: %s entry %d has no company_id", path, i)
			}
			if e.PlanCode == "" && e.Name == "" {
				return nil, eris.Errorf("overrides: %s entry %d has neither plan_code nor name", path, i)
			}
			if e.PlanCode != "" {
				tier.byPlan[e.PlanCode] = e.CompanyID
			}
			if e.Name != "" {
				tier.byName[normalize.Normalize(e.Name)] = e.CompanyID
			}
			tier.entries++
		}

		set.tiers = append(set.tiers, tier)
		zap.L().Debug("overrides: loaded tier",
			zap.String("tier", tier.name),
			zap.Int("entries", tier.entries),
		)
	}

	return set, nil
}

// Lookup checks the ordered tiers for an exact plan-code match, then a
// normalized-name match. The first tier that matches wins.
func (s *OverrideSet) Lookup(planCode, normalizedName string) (*model.MappingEntry, bool) {
	for _, tier := range s.tiers {
		if planCode != "" {
			if id, ok := tier.byPlan[planCode]; ok {
				return s.entry(normalizedName, id), true
			}
		}
		if id, ok := tier.byName[normalizedName]; ok {
			return s.entry(normalizedName, id), true
		}
	}
	return nil, false
}

func (s *OverrideSet) entry(normalizedName, companyID string) *model.MappingEntry {
	return &model.MappingEntry{
		NormalizedName: normalizedName,
		CompanyID:      companyID,
		SourceTier:     model.TierOverride,
		Confidence:     tierConfidence(model.TierOverride),
	}
}

// Tiers returns the loaded tier names and entry counts in priority order.
func (s *OverrideSet) Tiers() []struct {
	Name    string
	Entries int
} {
	out := make([]struct {
		Name    string
		Entries int
	}, len(s.tiers))
	for i, t := range s.tiers {
		out[i].Name = t.name
		out[i].Entries = t.entries
	}
	return out
}
