// Package catalog provides a client for the TMDB movie catalog API.
//
// The client translates a text query into either a search request or a
// popularity-sorted discovery request and returns the decoded result items.
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	client := catalog.NewClient(
//		"https://api.themoviedb.org/3",
//		"your-read-access-token",
//		logger,
//		catalog.WithTimeout(30*time.Second),
//	)
//
//	// Search by title
//	movies, err := client.FetchMovies(ctx, "Avatar")
//
//	// Popular movies (empty query)
//	movies, err = client.FetchMovies(ctx, "")
//
// # Error Handling
//
// Every call is a single attempt. Failures are classified as:
//
//   - ErrInvalidConfig: base URL or token missing, reported on first use
//   - TransportError: the HTTP round trip could not complete
//   - RequestError: the API answered with a non-success status
//   - ParseError: the response body did not match the expected shape
//
// Use errors.As to inspect a status failure:
//
//	var reqErr *catalog.RequestError
//	if errors.As(err, &reqErr) && reqErr.IsUnauthorized() {
//		// Handle bad token
//	}
package catalog
