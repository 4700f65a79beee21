package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONArray streams the elements of a top-level JSON array. Census
// responses are large arrays of rows, so elements are emitted as they are
// decoded rather than buffered. An empty body yields no elements and no
// error. Both channels are closed once the array ends or decoding stops.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	out := make(chan T, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)
		if err := streamArray(ctx, json.NewDecoder(r), out); err != nil {
			errc <- err
		}
	}()

	return out, errc
}

func streamArray[T any](ctx context.Context, dec *json.Decoder, out chan<- T) error {
	tok, err := dec.Token()
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return eris.Wrap(err, "json: read opening token")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return eris.Errorf("json: expected '[', got %v", tok)
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "json: context done")
		}
		var elem T
		if err := dec.Decode(&elem); err != nil {
			return eris.Wrap(err, "json: decode element")
		}
		select {
		case out <- elem:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "json: context done")
		}
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return eris.Wrap(err, "json: read closing token")
	}
	return nil
}

// DecodeJSONObject decodes one JSON value from r.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	v := new(T)
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return v, nil
}
