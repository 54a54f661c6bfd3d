package warmup

import "github.com/farxc/envelopa-rreo/internal/fiscal"

// Scope is the cross product a warm-up run covers.
type Scope struct {
	EntityIDs  []string
	Years      []int
	Periods    []int
	ReportType fiscal.ReportType
	Annex      string
	Sphere     fiscal.Sphere
}

// Plan expands a scope into one job per entity, year and period, most
// recent period first. Invalid combinations are dropped.
func Plan(s Scope, trigger string) []Job {
	reportType := s.ReportType
	if reportType == "" {
		reportType = fiscal.ReportFull
	}

	var jobs []Job
	for _, id := range s.EntityIDs {
		for _, year := range s.Years {
			for i := len(s.Periods) - 1; i >= 0; i-- {
				f := fiscal.Filter{
					EntityID:   id,
					Year:       year,
					Period:     s.Periods[i],
					ReportType: reportType,
					Annex:      s.Annex,
					Sphere:     s.Sphere,
				}
				if f.Validate() != nil {
					continue
				}
				jobs = append(jobs, Job{Filter: f, Attempt: 1, Trigger: trigger})
			}
		}
	}
	return jobs
}
