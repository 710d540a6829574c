// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map returns a sequence of f applied to each value of src.
func Map[T, U any](src *Forward[T], f func(T) U) *Forward[U] {
	return &Forward[U]{
		pull: func() (U, bool) {
			v, ok := src.Next()
			if !ok {
				var zero U
				return zero, false
			}
			return f(v), true
		},
		errf: src.Err,
	}
}

// Filter returns the values of src for which keep reports true.
func Filter[T any](src *Forward[T], keep func(T) bool) *Forward[T] {
	return &Forward[T]{
		pull: func() (T, bool) {
			for {
				v, ok := src.Next()
				if !ok || keep(v) {
					return v, ok
				}
			}
		},
		errf: src.Err,
	}
}

// Take returns at most the first n values of src.
func Take[T any](src *Forward[T], n int) *Forward[T] {
	return &Forward[T]{
		pull: func() (T, bool) {
			if n <= 0 {
				var zero T
				return zero, false
			}
			n--
			return src.Next()
		},
		errf: src.Err,
	}
}

// Collect drains src and returns its values with the error that ended it.
func Collect[T any](src *Forward[T]) ([]T, error) {
	var out []T
	for v := range src.All() {
		out = append(out, v)
	}
	return out, src.Err()
}

// Reduce folds the values of src into acc.
func Reduce[T, A any](src *Forward[T], acc A, f func(A, T) A) (A, error) {
	for v := range src.All() {
		acc = f(acc, v)
	}
	return acc, src.Err()
}

// Merge interleaves the values of srcs in arrival order. Each source is
// drained on its own goroutine. The first source error, or ctx's error,
// ends the merged sequence and is reported by its Err.
//
// Cancelling ctx stops a source only while it waits to deliver a value.
// A source blocked in its own Next is not interrupted, and the merged
// sequence does not end until that Next returns.
func Merge[T any](ctx context.Context, srcs ...*Forward[T]) *Forward[T] {
	return Generate(func(y *Yielder[T]) {
		g, gctx := errgroup.WithContext(ctx)
		out := make(chan T)
		for _, src := range srcs {
			g.Go(func() error {
				for v := range src.All() {
					select {
					case out <- v:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				return src.Err()
			})
		}
		errc := make(chan error, 1)
		go func() {
			errc <- g.Wait()
			close(out)
		}()
		for v := range out {
			y.Yield(v)
		}
		if err := <-errc; err != nil {
			y.Fail(err)
		}
	})
}
