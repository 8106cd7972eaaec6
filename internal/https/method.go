package https

type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// hasBody reports whether form payloads travel in the body rather than the
// query string.
func (m Method) hasBody() bool {
	return m == MethodPost || m == MethodPut
}

type ContentType string

const (
	ContentTypeJSON ContentType = "application/json"
	ContentTypeForm ContentType = "application/x-www-form-urlencoded"
)

// Params is the payload shape for form requests.
type Params map[string]string
