package domain

import (
	"strings"
	"time"
)

// SizeClass is the physical scale of a room. The set is closed and ordered.
type SizeClass string

const (
	SizeSmall      SizeClass = "small"
	SizeMedium     SizeClass = "medium"
	SizeLarge      SizeClass = "large"
	SizeExtraLarge SizeClass = "extra_large"
)

// SizeClasses lists every size class in ascending order.
var SizeClasses = []SizeClass{SizeSmall, SizeMedium, SizeLarge, SizeExtraLarge}

func (s SizeClass) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeExtraLarge:
		return true
	default:
		return false
	}
}

// ParseSizeClass accepts the canonical value plus the spellings operators and
// models commonly produce ("Extra Large", "extra-large", "XL").
func ParseSizeClass(raw string) (SizeClass, error) {
	v := normalizeClassToken(raw)
	if v == "xl" {
		v = string(SizeExtraLarge)
	}
	s := SizeClass(v)
	if !s.Valid() {
		return "", InvalidInput("parse size class", "unknown size class %q", raw)
	}
	return s, nil
}

// WorkloadClass is the effort or content density of a room. The set is closed and ordered.
type WorkloadClass string

const (
	WorkloadLight    WorkloadClass = "light"
	WorkloadModerate WorkloadClass = "moderate"
	WorkloadHeavy    WorkloadClass = "heavy"
	WorkloadExtreme  WorkloadClass = "extreme"
)

// WorkloadClasses lists every workload class in ascending order.
var WorkloadClasses = []WorkloadClass{WorkloadLight, WorkloadModerate, WorkloadHeavy, WorkloadExtreme}

func (w WorkloadClass) Valid() bool {
	switch w {
	case WorkloadLight, WorkloadModerate, WorkloadHeavy, WorkloadExtreme:
		return true
	default:
		return false
	}
}

func ParseWorkloadClass(raw string) (WorkloadClass, error) {
	w := WorkloadClass(normalizeClassToken(raw))
	if !w.Valid() {
		return "", InvalidInput("parse workload class", "unknown workload class %q", raw)
	}
	return w, nil
}

func normalizeClassToken(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	return v
}

// ClassificationSource tells where an axis value came from.
type ClassificationSource string

const (
	SourceAutomated ClassificationSource = "automated"
	SourceHuman     ClassificationSource = "human"
)

// Classification is the automated classifier output for a room image.
type Classification struct {
	Size         SizeClass      `json:"size_class"`
	Workload     WorkloadClass  `json:"workload_class"`
	Confidence   float64        `json:"confidence"`
	Reasoning    string         `json:"reasoning,omitempty"`
	Features     map[string]any `json:"features,omitempty"`
	Model        string         `json:"model,omitempty"`
	ClassifiedAt time.Time      `json:"classified_at"`
}

// FallbackClassification is used whenever the classifier cannot produce a result.
func FallbackClassification(reason string, at time.Time) Classification {
	return Classification{
		Size:         SizeMedium,
		Workload:     WorkloadModerate,
		Confidence:   0,
		Reasoning:    reason,
		Features:     map[string]any{},
		ClassifiedAt: at,
	}
}

// ClampConfidence keeps confidence inside [0, 1].
func ClampConfidence(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Override holds the human per-axis corrections. An empty value means the axis
// is not overridden.
type Override struct {
	Size     SizeClass     `json:"size_class,omitempty"`
	Workload WorkloadClass `json:"workload_class,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

func (o Override) IsZero() bool {
	return o.Size == "" && o.Workload == ""
}

// FinalClassification is the reconciled pair used for pricing. It is derived,
// never set directly.
type FinalClassification struct {
	Size           SizeClass            `json:"size_class"`
	Workload       WorkloadClass        `json:"workload_class"`
	SizeSource     ClassificationSource `json:"size_source"`
	WorkloadSource ClassificationSource `json:"workload_source"`
}
