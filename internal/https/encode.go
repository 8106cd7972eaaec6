package https

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
)

func encodeForm(payload any) (url.Values, error) {
	switch p := payload.(type) {
	case nil:
		return url.Values{}, nil
	case Params:
		out := make(url.Values, len(p))
		for k, v := range p {
			out.Set(k, v)
		}
		return out, nil
	case map[string]string:
		return encodeForm(Params(p))
	case url.Values:
		return p, nil
	default:
		return nil, fmt.Errorf("form payload must be Params, map[string]string or url.Values, got %T", payload)
	}
}

// encodePayload returns the query string and body for a request. Either may be
// empty.
func encodePayload(method Method, payload any, ct ContentType) (string, io.Reader, error) {
	switch ct {
	case ContentTypeForm:
		values, err := encodeForm(payload)
		if err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			return "", nil, nil
		}
		if method.hasBody() {
			return "", bytes.NewBufferString(values.Encode()), nil
		}
		return values.Encode(), nil, nil
	case ContentTypeJSON:
		if payload == nil {
			return "", nil, nil
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return "", nil, fmt.Errorf("encode json payload: %w", err)
		}
		return "", bytes.NewReader(raw), nil
	default:
		return "", nil, fmt.Errorf("unsupported content type %q", ct)
	}
}
