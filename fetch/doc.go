// Package fetch provides Controller, a small state machine that runs a
// producer function in the background and tracks its data, loading flag and
// error.
//
// A controller is owned by whoever composes it. Start binds it to a
// lifecycle context and, unless auto start is disabled, runs the producer
// once. Stop ends the lifecycle; results that arrive afterwards are
// discarded.
//
//	movies := fetch.New(func(ctx context.Context) ([]catalog.Movie, error) {
//		return client.FetchMovies(ctx, "")
//	}, fetch.WithLogger(logger))
//	movies.Start(ctx)
//	defer movies.Stop()
//
//	movies.Wait()
//	state := movies.State()
//
// Every Execute, Reset and Stop starts a new generation. A run only applies
// its result if no newer generation has begun, so a Reset is never
// overwritten by a request that was already in flight.
package fetch
