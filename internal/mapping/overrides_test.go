package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-cli/internal/model"
	"github.com/sells-group/identity-cli/internal/normalize"
)

func writeOverrideFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverrides_Empty(t *testing.T) {
	set, err := LoadOverrides(nil)
	require.NoError(t, err)
	_, ok := set.Lookup("P1", "acme")
	assert.False(t, ok)
}

func TestLoadOverrides_LookupByPlanCode(t *testing.T) {
	path := writeOverrideFile(t, "tier1.yaml", `
tier: curated
entries:
  - plan_code: P100
    company_id: C-1
`)
	set, err := LoadOverrides([]string{path})
	require.NoError(t, err)

	e, ok := set.Lookup("P100", "whatever")
	require.True(t, ok)
	assert.Equal(t, "C-1", e.CompanyID)
	assert.Equal(t, model.TierOverride, e.SourceTier)
}

func TestLoadOverrides_LookupByNormalizedName(t *testing.T) {
	path := writeOverrideFile(t, "tier1.yaml", `
tier: curated
entries:
  - name: "ABC集团"
    company_id: C-2
`)
	set, err := LoadOverrides([]string{path})
	require.NoError(t, err)

	// Raw spellings that normalize to the same value all match.
	e, ok := set.Lookup("", normalize.Normalize("  abc集团  "))
	require.True(t, ok)
	assert.Equal(t, "C-2", e.CompanyID)

	e, ok = set.Lookup("", normalize.Normalize("ABC集团(已终止)"))
	require.True(t, ok)
	assert.Equal(t, "C-2", e.CompanyID)
}

func TestLoadOverrides_TierOrder(t *testing.T) {
	high := writeOverrideFile(t, "high.yaml", `
tier: high
entries:
  - name: Acme
    company_id: C-HIGH
`)
	low := writeOverrideFile(t, "low.yaml", `
tier: low
entries:
  - name: Acme
    company_id: C-LOW
`)
	set, err := LoadOverrides([]string{high, low})
	require.NoError(t, err)

	e, ok := set.Lookup("", normalize.Normalize("Acme"))
	require.True(t, ok)
	assert.Equal(t, "C-HIGH", e.CompanyID)
}

func TestLoadOverrides_MalformedYAML(t *testing.T) {
	path := writeOverrideFile(t, "bad.yaml", "tier: [unterminated")
	_, err := LoadOverrides([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoadOverrides_MissingCompanyID(t *testing.T) {
	path := writeOverrideFile(t, "bad.yaml", `
entries:
  - name: Acme
`)
	_, err := LoadOverrides([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company_id")
}

func TestLoadOverrides_EntryWithoutKeys(t *testing.T) {
	path := writeOverrideFile(t, "bad.yaml", `
entries:
  - company_id: C-1
`)
	_, err := LoadOverrides([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither plan_code nor name")
}

func TestLoadOverrides_MissingFile(t *testing.T) {
	_, err := LoadOverrides([]string{filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err)
}

func TestOverrideSet_Tiers(t *testing.T) {
	path := writeOverrideFile(t, "tier1.yaml", `
tier: curated
entries:
  - plan_code: P1
    company_id: C-1
  - name: Acme
    company_id: C-2
`)
	set, err := LoadOverrides([]string{path})
	require.NoError(t, err)

	tiers := set.Tiers()
	require.Len(t, tiers, 1)
	assert.Equal(t, "curated", tiers[0].Name)
	assert.Equal(t, 2, tiers[0].Entries)
}
