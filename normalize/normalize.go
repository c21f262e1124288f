// Package normalize turns backend JSON of unpredictable shape into plain
// records.
//
// The storefront backend wraps list payloads in whatever envelope the
// endpoint's author preferred: {success, data}, {data}, {cartItems}, {items},
// {products}, a bare array, or an object nested one level deeper
// ({data: {items: [...]}}). ExtractRecords probes those shapes in a fixed
// order so callers only name the keys they care about.
package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Record is a single decoded JSON object.
type Record = map[string]interface{}

// Decode parses a JSON document. Numbers are kept as json.Number so prices
// survive without float rounding. An empty body decodes to nil.
func Decode(data []byte) (interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// strategy returns the records it found and whether its shape matched.
type strategy func(body interface{}, keys []string) ([]Record, bool)

var strategies = []strategy{
	successEnvelope,
	bareArray,
	anyCandidateKey,
}

// ExtractRecords returns the list of records carried by body.
//
// Strategies, first match wins:
//  1. success-flagged envelope: the first present key among candidateKeys
//  2. bare top-level array
//  3. the first present candidate key, whatever the success flag says
//
// A candidate value that is an object holding another candidate key is
// descended once. Non-object array elements are dropped. The result is never
// nil, and passing an already extracted []Record returns it unchanged.
func ExtractRecords(body interface{}, candidateKeys ...string) []Record {
	if recs, ok := body.([]Record); ok {
		return recs
	}
	for _, s := range strategies {
		if recs, ok := s(body, candidateKeys); ok {
			return recs
		}
	}
	return []Record{}
}

// ExtractRecord returns the single object carried by body: the first
// candidate key holding an object, or body itself when it is an object
// without any candidate key.
func ExtractRecord(body interface{}, candidateKeys ...string) (Record, bool) {
	obj, ok := Object(body)
	if !ok {
		return nil, false
	}
	for _, k := range candidateKeys {
		if inner, ok := Object(obj[k]); ok {
			return inner, true
		}
	}
	for _, k := range candidateKeys {
		if _, present := obj[k]; present {
			return nil, false
		}
	}
	return obj, true
}

func successEnvelope(body interface{}, keys []string) ([]Record, bool) {
	obj, ok := Object(body)
	if !ok || !IsSuccess(obj) {
		return nil, false
	}
	return fromKeys(obj, keys, true)
}

func bareArray(body interface{}, _ []string) ([]Record, bool) {
	arr, ok := Array(body)
	if !ok {
		return nil, false
	}
	return toRecords(arr), true
}

func anyCandidateKey(body interface{}, keys []string) ([]Record, bool) {
	obj, ok := Object(body)
	if !ok {
		return nil, false
	}
	return fromKeys(obj, keys, true)
}

// fromKeys returns the records under the first candidate key that yields a
// list. When descend is set, a candidate holding an object is searched for
// the candidate keys one more level down.
func fromKeys(obj Record, keys []string, descend bool) ([]Record, bool) {
	for _, k := range keys {
		v, present := obj[k]
		if !present || v == nil {
			continue
		}
		if arr, ok := Array(v); ok {
			return toRecords(arr), true
		}
		if inner, ok := Object(v); ok && descend {
			if recs, ok := fromKeys(inner, keys, false); ok {
				return recs, true
			}
		}
	}
	return nil, false
}

func toRecords(arr []interface{}) []Record {
	out := make([]Record, 0, len(arr))
	for _, el := range arr {
		if r, ok := Object(el); ok {
			out = append(out, r)
		}
	}
	return out
}

// IsSuccess reports whether an envelope declares success, either with
// success:true or with status:"success".
func IsSuccess(obj Record) bool {
	if b, ok := Bool(obj["success"]); ok && b {
		return true
	}
	if s, ok := obj["status"].(string); ok && strings.EqualFold(s, "success") {
		return true
	}
	return false
}

// IsFailure reports whether an envelope explicitly declares failure with
// success:false. A missing flag is not a failure.
func IsFailure(body interface{}) bool {
	obj, ok := Object(body)
	if !ok {
		return false
	}
	b, ok := Bool(obj["success"])
	return ok && !b
}

// Message returns the backend's human-readable message, if any.
func Message(body interface{}) string {
	obj, ok := Object(body)
	if !ok {
		return ""
	}
	for _, k := range []string{"message", "error", "msg"} {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if errObj, ok := Object(obj["error"]); ok {
		if s, ok := errObj["message"].(string); ok {
			return s
		}
	}
	return ""
}
