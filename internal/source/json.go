package source

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/admission-watch/internal/model"
)

// DecodeJSONArray decodes a JSON array streaming, sending each element to a channel.
// Expects input in the form [{...},{...}]. Empty input yields no elements.
// Both channels are closed when processing completes.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}

			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// ParseJSONRows decodes a JSON array of row objects. Key order inside each
// object becomes the row's column order.
func ParseJSONRows(ctx context.Context, r io.Reader) ([]model.Row, error) {
	rowCh, errCh := DecodeJSONArray[model.Row](ctx, r)

	rows := []model.Row{}
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// LoadJSONRows reads and decodes a JSON row file.
func LoadJSONRows(ctx context.Context, path string) ([]model.Row, error) {
	text, err := ReadText(path)
	if err != nil {
		return nil, err
	}
	rows, err := ParseJSONRows(ctx, strings.NewReader(text))
	if err != nil {
		return nil, eris.Wrapf(err, "source: parse %s", path)
	}
	return rows, nil
}
