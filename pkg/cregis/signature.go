package cregis

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SignField is the payload field carrying the signature itself. It is always
// excluded from the canonical string.
const SignField = "sign"

// Sign computes the Cregis request signature: drop empty values, sort the
// remaining keys, concatenate secret + key1value1key2value2..., MD5, lowercase
// hex. The signing secret is the project API key.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == SignField || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(secret)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the provided signature matches the params. The
// comparison is constant-time and case-insensitive on the provided value.
func Verify(params map[string]string, secret, provided string) bool {
	if provided == "" {
		return false
	}
	expected := Sign(params, secret)
	given := strings.ToLower(provided)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

// ParamsFromJSON flattens a raw callback body into the string params the
// signature scheme operates on. Numbers keep their wire form via
// json.Number; null and non-scalar values (objects, arrays) are dropped,
// since the gateway only signs scalar fields and may add new structured
// ones at any time.
func ParamsFromJSON(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode callback body: %w", err)
	}

	params := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			params[k] = val
		case json.Number:
			params[k] = val.String()
		case bool:
			params[k] = strconv.FormatBool(val)
		default:
			continue
		}
	}
	return params, nil
}
