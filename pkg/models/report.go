package models

import "time"

// Report is one CSP violation report as returned by the reporting endpoint.
// Identity is the endpoint-assigned id; reports are read-only in this
// system (fetched, displayed, discarded).
type Report struct {
	ID     string       `json:"_id"`
	Fields ReportFields `json:"report"`
}

// ReportFields mirrors the wire payload. All values are externally defined
// and treated as opaque; nothing here is validated or normalized on decode.
type ReportFields struct {
	DocumentURI        string  `json:"documenturi"`
	Referrer           string  `json:"referrer"`
	ViolatedDirective  string  `json:"violateddirective"`
	EffectiveDirective string  `json:"effectivedirective"`
	OriginalPolicy     string  `json:"originalpolicy"`
	Disposition        string  `json:"disposition"`
	BlockedURI         string  `json:"blockeduri"`
	LineNumber         int64   `json:"linenumber"`
	SourceFile         string  `json:"sourcefile"`
	StatusCode         int     `json:"statuscode"`
	ScriptSample       string  `json:"scriptsample"`
	ClientIP           string  `json:"clientip"`
	UserAgent          string  `json:"useragent"`
	ReportTime         float64 `json:"reporttime"`
}

// ReportedAt converts the numeric reporttime (seconds since epoch) to a
// time.Time in UTC.
func (f ReportFields) ReportedAt() time.Time {
	sec := int64(f.ReportTime)
	nsec := int64((f.ReportTime - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
