package importer

// Book statuses reported per run.
const (
	StatusPending   = "pending"
	StatusPlanned   = "planned"
	StatusProcessed = "processed"
	StatusStaged    = "staged"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Report summarizes an import run for --json output.
type Report struct {
	RunID   string          `json:"run_id"`
	Sources []*SourceReport `json:"sources"`
	Totals  Totals          `json:"totals"`
}

// SourceReport describes one source.
type SourceReport struct {
	Name        string        `json:"name"`
	Fingerprint string        `json:"fingerprint"`
	Stage       string        `json:"stage"`
	Books       []*BookReport `json:"books"`
}

// BookReport describes one picked book.
type BookReport struct {
	Label       string `json:"label"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Cover       string `json:"cover"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
}

// Totals counts sources, picked books, and books processed in this run.
type Totals struct {
	Sources   int `json:"sources"`
	Books     int `json:"books"`
	Processed int `json:"processed"`
}

func newReport(runID string) *Report {
	return &Report{RunID: runID, Sources: []*SourceReport{}}
}

func (r *Report) addSource(name, fingerprint, stage string) *SourceReport {
	src := &SourceReport{Name: name, Fingerprint: fingerprint, Stage: stage, Books: []*BookReport{}}
	r.Sources = append(r.Sources, src)
	return src
}

func (s *SourceReport) addBook(label string) *BookReport {
	b := &BookReport{Label: label, Status: StatusPending}
	s.Books = append(s.Books, b)
	return b
}

func (r *Report) finish() *Report {
	r.Totals = Totals{Sources: len(r.Sources)}
	for _, src := range r.Sources {
		r.Totals.Books += len(src.Books)
		for _, b := range src.Books {
			if b.Status == StatusProcessed || b.Status == StatusStaged {
				r.Totals.Processed++
			}
		}
	}
	return r
}
