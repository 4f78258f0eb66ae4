package validate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/catalog"
)

// Report collects the outcome of one audit run.
type Report struct {
	Level      Level
	Checksum   uint64
	Started    time.Time
	Finished   time.Time
	Checked    int
	Violations []Violation
}

func (r *Report) add(typ string, id catalog.ID, description string, sev Severity) {
	r.Violations = append(r.Violations, Violation{
		Type:        typ,
		Engine:      id,
		Description: description,
		Severity:    sev,
		Time:        time.Now(),
	})
}

func (r *Report) addf(typ string, id catalog.ID, sev Severity, format string, args ...any) {
	r.add(typ, id, fmt.Sprintf(format, args...), sev)
}

// OK reports whether the audit found no critical violations.
func (r *Report) OK() bool {
	return r.Criticals() == 0
}

// Criticals counts critical violations.
func (r *Report) Criticals() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == Critical {
			n++
		}
	}
	return n
}

// Warnings counts warning violations.
func (r *Report) Warnings() int {
	return len(r.Violations) - r.Criticals()
}

// Text renders a human readable summary.
func (r *Report) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "engine audit: level=%s engines=%d checksum=%016x elapsed=%s\n",
		r.Level, r.Checked, r.Checksum, r.Finished.Sub(r.Started).Round(time.Millisecond))
	fmt.Fprintf(&b, "violations: %d critical, %d warning\n", r.Criticals(), r.Warnings())

	for _, v := range r.Violations {
		fmt.Fprintf(&b, "  [%s] %s id=%d (%s): %s\n",
			v.Severity, v.Type, int(v.Engine), v.Engine, v.Description)
	}

	if r.OK() {
		b.WriteString("result: PASS\n")
	} else {
		b.WriteString("result: FAIL\n")
	}

	return b.String()
}

// MappingCSV writes the full ID mapping with per-engine audit status,
// one row per catalogue entry.
func (r *Report) MappingCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "name", "category", "params", "mix_index", "is_platinum", "is_studio", "high_cost", "status"}
	if err := cw.Write(header); err != nil {
		return err
	}

	status := make(map[catalog.ID]string, catalog.Count)
	for _, v := range r.Violations {
		if !v.Engine.Valid() {
			continue
		}
		if v.Severity == Critical {
			status[v.Engine] = "critical"
		} else if status[v.Engine] == "" {
			status[v.Engine] = "warning"
		}
	}

	for id := catalog.ID(0); id < catalog.Count; id++ {
		meta, _ := catalog.Lookup(id)
		st := status[id]
		if st == "" {
			st = "ok"
		}
		row := []string{
			strconv.Itoa(int(id)),
			meta.Name,
			meta.Category.String(),
			strconv.Itoa(meta.NumParams),
			strconv.Itoa(meta.MixIndex),
			strconv.FormatBool(meta.Platinum),
			strconv.FormatBool(meta.Studio),
			strconv.FormatBool(meta.HighCost),
			st,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
