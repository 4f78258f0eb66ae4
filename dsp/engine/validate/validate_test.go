package validate

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/catalog"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/factory"
)

func TestFullAuditPasses(t *testing.T) {
	if testing.Short() {
		t.Skip("paranoid audit is slow")
	}

	report := Run(Paranoid, factory.Create)

	for _, v := range report.Violations {
		t.Logf("[%s] %s id=%d: %s", v.Severity, v.Type, int(v.Engine), v.Description)
	}
	assert.True(t, report.OK(), "audit found %d critical violations", report.Criticals())
	assert.Equal(t, catalog.Count, report.Checked)
	assert.Equal(t, catalog.Checksum(), report.Checksum)
}

func TestBasicCatchesMissingEngine(t *testing.T) {
	// A factory with a hole: ID 5 goes missing.
	broken := func(id catalog.ID) engine.Engine {
		if id == 5 {
			return nil
		}
		return factory.Create(id)
	}

	report := Run(Basic, broken)
	require.False(t, report.OK())

	found := false
	for _, v := range report.Violations {
		if v.Engine == 5 && v.Type == "existence" && v.Severity == Critical {
			found = true
		}
	}
	assert.True(t, found, "missing engine not reported")
}

func TestBasicCatchesOutOfRangeConstruction(t *testing.T) {
	// A factory that wrongly constructs for any ID.
	promiscuous := func(id catalog.ID) engine.Engine {
		if id.Valid() {
			return factory.Create(id)
		}
		return engine.NewBypass()
	}

	report := Run(Basic, promiscuous)
	assert.False(t, report.OK(), "out-of-range construction must be critical")
}

func TestReportText(t *testing.T) {
	report := Run(Basic, factory.Create)
	text := report.Text()

	assert.Contains(t, text, "level=basic")
	assert.Contains(t, text, "result: PASS")
}

func TestMappingCSVShape(t *testing.T) {
	report := Run(Standard, factory.Create)

	var buf bytes.Buffer
	require.NoError(t, report.MappingCSV(&buf))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, catalog.Count+1, "header plus one row per engine")

	header := []string{"id", "name", "category", "params", "mix_index", "is_platinum", "is_studio", "high_cost", "status"}
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "0", rows[1][0])
	assert.Equal(t, "None", rows[1][1])

	for _, row := range rows[1:] {
		assert.Contains(t, []string{"true", "false"}, row[5])
		assert.Contains(t, []string{"true", "false"}, row[6])
		assert.Contains(t, []string{"ok", "warning", "critical"}, row[8])
	}
}

func TestLevelAndSeverityStrings(t *testing.T) {
	assert.Equal(t, "paranoid", Paranoid.String())
	assert.Equal(t, "critical", Critical.String())
	assert.Equal(t, "warning", Warning.String())
}
