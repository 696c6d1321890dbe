// Package mocks provides shared mock implementations for testing.
//
// Mocks use function fields so each test sets only the behavior it needs:
//
//	gen := &mocks.MockGenerator{
//	    CompleteFn: func(ctx context.Context, req generation.Request) (string, error) {
//	        return `{"questions":[]}`, nil
//	    },
//	}
//
// Mocks record their calls so tests can assert on what was sent.
package mocks
