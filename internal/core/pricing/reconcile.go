package pricing

import "github.com/kirillkom/cleanout-estimator/internal/core/domain"

// Reconcile picks each axis independently: a human value wins, otherwise the
// automated value is used. This is the only place precedence is decided.
func Reconcile(automated domain.Classification, override domain.Override) domain.FinalClassification {
	final := domain.FinalClassification{
		Size:           automated.Size,
		Workload:       automated.Workload,
		SizeSource:     domain.SourceAutomated,
		WorkloadSource: domain.SourceAutomated,
	}
	if override.Size != "" {
		final.Size = override.Size
		final.SizeSource = domain.SourceHuman
	}
	if override.Workload != "" {
		final.Workload = override.Workload
		final.WorkloadSource = domain.SourceHuman
	}
	return final
}
