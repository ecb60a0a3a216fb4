// Package weberr builds error chains that carry the HTTP response to answer
// with. Handlers return them; the errors middleware unwraps the chain with
// errors.As and writes whatever response it finds.
package weberr

// Opt decorates an error with additional behavior on its chain.
type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

func WithFields(fields map[string]interface{}) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}
