// Package client is a Go client for the textupsert HTTP API.
//
//	c, err := client.New("http://localhost:8088", client.WithToken(os.Getenv("API_BEARER_TOKEN")))
//	if err != nil { ... }
//	res, err := c.UpsertText(ctx, client.UpsertTextRequest{
//		Text:     "Invoice 2024-118, net 30 days",
//		Metadata: map[string]any{"source": "mail"},
//	})
//
// Failed calls return *APIError; use IsUnauthorized, IsUnavailable and
// friends to branch on the kind.
package client
