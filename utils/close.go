package utils

import "context"

// TryClose closes v if it has a Close method, with or without a context. Anything else is left
// alone.
func TryClose(ctx context.Context, v interface{}) error {
	switch c := v.(type) {
	case interface{ Close(context.Context) error }:
		return c.Close(ctx)
	case interface{ Close() error }:
		return c.Close()
	default:
		return nil
	}
}
