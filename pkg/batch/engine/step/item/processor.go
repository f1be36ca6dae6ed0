package item

import (
	"context"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
)

// ProcessorFunc adapts a function to port.ItemProcessor.
type ProcessorFunc[I, O any] func(ctx context.Context, item I) (O, error)

// Process calls f.
func (f ProcessorFunc[I, O]) Process(ctx context.Context, item I) (O, error) {
	return f(ctx, item)
}

// PassThroughProcessor returns every item unchanged.
type PassThroughProcessor[T any] struct{}

// Process returns item.
func (PassThroughProcessor[T]) Process(_ context.Context, item T) (T, error) {
	return item, nil
}

var (
	_ port.ItemProcessor[any, any] = ProcessorFunc[any, any](nil)
	_ port.ItemProcessor[any, any] = PassThroughProcessor[any]{}
)
