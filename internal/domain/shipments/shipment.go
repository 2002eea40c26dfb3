package shipments

import "strings"

// Field names written by the upstream delay classifier.
const (
	FieldSeverity  = "severity"
	FieldDelay     = "delay"
	FieldEDD       = "EDD"
	FieldCreatedAt = "CreatedAt"
	FieldThreadID  = "threadId"
)

// SearchFields are matched by the free-text search on the delayed-shipments view.
var SearchFields = []string{
	"DocketNo",
	"CustomerName",
	"logistics_email",
	"DeliveryPartner",
	"From Location",
	"To Location",
	FieldEDD,
}

type Severity string

const (
	SeverityAll    Severity = "all"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity normalizes a filter value. Empty means all.
func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SeverityAll:
		return SeverityAll, true
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	default:
		return "", false
	}
}

type SeverityCounts struct {
	Low    int64 `json:"low"`
	Medium int64 `json:"medium"`
	High   int64 `json:"high"`
}

type Stats struct {
	Total            int64          `json:"total"`
	SeverityCounts   SeverityCounts `json:"severityCounts"`
	AvgDelay         float64        `json:"avgDelay"`
	DelayedShipments int64          `json:"delayedShipments"`
}

// UploadTemplateHeaders is the column layout offered to users as a starting file.
var UploadTemplateHeaders = []string{"Tenant", "DocketNo", "DeliveryPartner", "EDD", "EcomStatus"}
