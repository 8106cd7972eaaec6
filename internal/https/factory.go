package https

// Selector hands out a client profile. The flag is passed through from the API
// functions as-is: false picks the plain profile, true the one that carries the
// tracker token.
type Selector interface {
	Select(secure bool) Requester
}

// Factory holds both profiles over one shared transport.
type Factory struct {
	plain  *Client
	secure *Client
}

func NewFactory(opts Options) (*Factory, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	hc := newHTTPClient(opts)
	return &Factory{
		plain:  newClient(opts, base, hc, false),
		secure: newClient(opts, base, hc, true),
	}, nil
}

func (f *Factory) Select(secure bool) Requester {
	if secure {
		return f.secure
	}
	return f.plain
}
