/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// fencedJSON returns the body of the first ```json block, if any. The closing
// fence may be missing when the response was cut off.
func fencedJSON(text string) (string, bool) {
	var body []string
	inBlock := false
	for line := range strings.Lines(text) {
		line = strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(line)
		if !inBlock {
			if strings.EqualFold(trimmed, "```json") {
				inBlock = true
			}
			continue
		}
		if trimmed == "```" {
			break
		}
		body = append(body, line)
	}
	if !inBlock {
		return "", false
	}
	joined := strings.TrimSpace(strings.Join(body, "\n"))
	return joined, joined != ""
}

// braceSpan returns text from the first '{' to the last '}'.
func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// decode parses text as JSON, repairing it first if it does not parse as-is.
// Numbers are kept as json.Number so out-of-range values still decode.
func decode(text string) (any, bool) {
	if v, err := unmarshal(text); err == nil {
		return v, true
	}
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, false
	}
	v, err := unmarshal(repaired)
	return v, err == nil
}

func unmarshal(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// structured looks for a score in a decoded JSON value. Arrays yield their
// first element that carries a score.
func structured(v any, raw string) (Result, bool) {
	switch t := v.(type) {
	case map[string]any:
		return fromObject(t, raw)
	case []any:
		for _, elem := range t {
			if obj, ok := elem.(map[string]any); ok {
				if r, ok := fromObject(obj, raw); ok {
					return r, true
				}
			}
		}
	}
	return Result{}, false
}

func fromObject(obj map[string]any, raw string) (Result, bool) {
	score, ok := number(lookup(obj, "score"))
	if !ok {
		return Result{}, false
	}
	r := Result{
		Score:       Clamp(score),
		Explanation: strings.TrimSpace(raw),
	}
	if s, ok := lookup(obj, "explanation").(string); ok {
		r.Explanation = s
	}
	if quotes, ok := lookup(obj, "quotes").([]any); ok {
		for _, q := range quotes {
			if s, ok := q.(string); ok && s != "" {
				r.Quotes = append(r.Quotes, s)
			}
		}
	}
	return r, true
}

// lookup finds key case-insensitively, preferring an exact match.
func lookup(obj map[string]any, key string) any {
	if v, ok := obj[key]; ok {
		return v
	}
	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

// number accepts JSON numbers and numeric strings. Values beyond float64
// parse as ±Inf, which Clamp bounds.
func number(v any) (float64, bool) {
	var text string
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		text = n.String()
	case string:
		text = strings.TrimSpace(n)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}
