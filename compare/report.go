package compare

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lattice-substrate/tz-validation/tzverr"
	"github.com/lattice-substrate/tz-validation/valdata"
)

// reportNamespace scopes the name-based report IDs.
var reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/lattice-substrate/tz-validation/report"))

// Diagnostic is one disagreement. Indices are cursor positions in the
// observed and expected item lists, or -1 when not applicable.
type Diagnostic struct {
	Zone          string `json:"zone,omitempty"`
	Category      string `json:"category"`
	Field         string `json:"field,omitempty"`
	ObservedIndex int    `json:"observed_index"`
	ExpectedIndex int    `json:"expected_index"`
	Message       string `json:"message"`
}

// String formats d as one line of the diff output.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString("ERROR")
	if d.Zone != "" {
		b.WriteString(" ")
		b.WriteString(d.Zone)
	}
	b.WriteString(" ")
	b.WriteString(d.Category)
	if d.Field != "" {
		fmt.Fprintf(&b, " '%s'", d.Field)
	}
	if d.ObservedIndex >= 0 || d.ExpectedIndex >= 0 {
		fmt.Fprintf(&b, ": obs[%s] exp[%s]", index(d.ObservedIndex), index(d.ExpectedIndex))
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

func index(i int) string {
	if i < 0 {
		return "-"
	}
	return strconv.Itoa(i)
}

// Report is the outcome of one comparison.
type Report struct {
	ID            string        `json:"id,omitempty"`
	Valid         bool          `json:"valid"`
	Subset        bool          `json:"subset"`
	Fatal         *tzverr.Error `json:"-"`
	FatalClass    string        `json:"fatal_class,omitempty"`
	Checks        Checks        `json:"checks"`
	ZonesCompared int           `json:"zones_compared"`
	Skipped       []string      `json:"skipped"`
	Failed        []string      `json:"failed"`
	Diagnostics   []Diagnostic  `json:"diagnostics"`
}

func (r *Report) add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// fatal records err as the reason the comparison stopped.
func (r *Report) fatal(err *tzverr.Error, category string) {
	r.Fatal = err
	r.add(Diagnostic{
		Category:      category,
		ObservedIndex: -1,
		ExpectedIndex: -1,
		Message:       err.Message,
	})
}

func (r *Report) finish() *Report {
	if r.Fatal != nil {
		r.FatalClass = string(r.Fatal.Class)
	}
	if r.Skipped == nil {
		r.Skipped = []string{}
	}
	if r.Failed == nil {
		r.Failed = []string{}
	}
	if r.Diagnostics == nil {
		r.Diagnostics = []Diagnostic{}
	}
	r.Valid = r.Fatal == nil && len(r.Diagnostics) == 0
	return r
}

// Err returns nil for a valid report, the fatal error when the comparison
// stopped early, and a ValidationFailed error otherwise.
func (r *Report) Err() error {
	switch {
	case r.Valid:
		return nil
	case r.Fatal != nil:
		return r.Fatal
	}
	return tzverr.Newf(tzverr.ValidationFailed, "%d diagnostics in %d zones", len(r.Diagnostics), len(r.Failed))
}

// Summary is a one-line verdict.
func (r *Report) Summary() string {
	verdict := "PASS"
	if !r.Valid {
		verdict = "FAIL"
	}
	mode := "full"
	if r.Subset {
		mode = "subset"
	}
	return fmt.Sprintf("%s (%s): %d zones compared, %d skipped, %d failed, %d diagnostics",
		verdict, mode, r.ZonesCompared, len(r.Skipped), len(r.Failed), len(r.Diagnostics))
}

// WriteJSON writes the report to path as canonical JSON.
func (r *Report) WriteJSON(path string) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	canonical, err := valdata.Canonicalize(raw)
	if err != nil {
		return err
	}
	return valdata.WriteAtomic(path, append(canonical, '\n'))
}

// reportID derives a stable ID from the digests of both documents, so the
// same pair of inputs always yields the same report ID.
func reportID(observed, expected *valdata.ValidationData) string {
	do, err := valdata.Digest(observed)
	if err != nil {
		return ""
	}
	de, err := valdata.Digest(expected)
	if err != nil {
		return ""
	}
	return uuid.NewSHA1(reportNamespace, []byte(do+"\n"+de)).String()
}
