package registry

import (
	"encoding/json"
	"time"
)

// rawNumberOrString decodes a JSON field that may be a numeric epoch
// millisecond timestamp or an ISO date string, as maven's Solr response
// can be depending on field configuration.
type rawNumberOrString struct {
	num   int64
	str   string
	isNum bool
	set   bool
}

func (r *rawNumberOrString) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		r.num, r.isNum, r.set = n, true, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.str, r.isNum, r.set = s, false, true
		return nil
	}
	return nil
}

func (r rawNumberOrString) asTime() (time.Time, bool) {
	if !r.set {
		return time.Time{}, false
	}
	if r.isNum {
		return parseEpochMillis(r.num), true
	}
	return parseTime(r.str)
}
