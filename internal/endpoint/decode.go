package endpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/logger"
)

type outcome int

const (
	// skipped means the body is not in this decoder's format.
	skipped outcome = iota
	matched
	failed
)

type decodeResult struct {
	outcome outcome
	text    string
	err     error
}

func skip() decodeResult { return decodeResult{outcome: skipped} }
func match(text string) decodeResult { return decodeResult{outcome: matched, text: text} }
func fail(err error) decodeResult { return decodeResult{outcome: failed, err: err} }
func failf(format string, args ...any) decodeResult {
	return fail(apperrors.Parse(fmt.Errorf(format, args...)))
}

type decoder struct {
	name   string
	decode func(body []byte) decodeResult
}

// decoders run in order; the first one that does not skip decides.
var decoders = []decoder{
	{name: "envelope", decode: decodeEnvelope},
	{name: "json", decode: decodeJSONFields},
	{name: "text", decode: decodePlainText},
}

// jsonFields are probed in order on JSON objects that are not envelopes.
var jsonFields = []string{"translated_text", "result", "translation", "data"}

// Decode extracts the translated text from a successful response body.
func Decode(body []byte) (string, error) {
	for _, d := range decoders {
		res := d.decode(body)
		switch res.outcome {
		case matched:
			logger.Debug("Decoded endpoint response", "decoder", d.name)
			return res.text, nil
		case failed:
			logger.Debug("Endpoint response rejected", "decoder", d.name, "error", res.err)
			return "", res.err
		}
	}
	return "", apperrors.Parse(fmt.Errorf("no decoder accepted the response"))
}

type envelope struct {
	Code *json.Number `json:"code"`
	Data *string      `json:"data"`
}

// decodeEnvelope handles the DeepLX {code, data} shape.
func decodeEnvelope(body []byte) decodeResult {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil || env.Code == nil || env.Data == nil {
		return skip()
	}
	code, err := env.Code.Int64()
	if err != nil {
		return skip()
	}
	if code != 200 {
		return fail(apperrors.API(int(code), "Translation endpoint rejected the request", nil))
	}
	if *env.Data == "" {
		return failf("endpoint returned an empty translation")
	}
	return match(*env.Data)
}

func decodeJSONFields(body []byte) decodeResult {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return skip()
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return failf("invalid JSON response: %v", err)
	}
	for _, field := range jsonFields {
		if s, ok := obj[field].(string); ok && s != "" {
			return match(s)
		}
	}
	return failf("no translation field in JSON response (tried %s)", strings.Join(jsonFields, ", "))
}

func decodePlainText(body []byte) decodeResult {
	if len(bytes.TrimSpace(body)) == 0 {
		return failf("endpoint returned an empty body")
	}
	return match(string(body))
}
