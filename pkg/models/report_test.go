package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestReportDecode(t *testing.T) {
	raw := `{
		"_id": "65a1",
		"report": {
			"documenturi": "https://app.example.com/page",
			"referrer": "",
			"violateddirective": "script-src",
			"effectivedirective": "script-src",
			"originalpolicy": "default-src 'self'",
			"disposition": "enforce",
			"blockeduri": "http://evil.example",
			"linenumber": 12,
			"sourcefile": "https://app.example.com/app.js",
			"statuscode": 200,
			"scriptsample": "",
			"clientip": "1.2.3.4",
			"useragent": "Mozilla/5.0",
			"reporttime": 1700000000
		}
	}`
	var rep Report
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rep.ID != "65a1" {
		t.Fatalf("unexpected id: %q", rep.ID)
	}
	if rep.Fields.ViolatedDirective != "script-src" || rep.Fields.ClientIP != "1.2.3.4" {
		t.Fatalf("unexpected fields: %+v", rep.Fields)
	}
	if rep.Fields.LineNumber != 12 {
		t.Fatalf("unexpected line number: %d", rep.Fields.LineNumber)
	}
}

func TestReportedAt(t *testing.T) {
	f := ReportFields{ReportTime: 1700000000}
	want := time.Unix(1700000000, 0).UTC()
	if got := f.ReportedAt(); !got.Equal(want) {
		t.Fatalf("ReportedAt = %v, want %v", got, want)
	}
}
