// Package httpclient implements the authenticated REST client the Notificare
// SDK uses for every backend call.
//
// The client retries transport-level failures (connection refused, timeouts,
// DNS errors) with exponential backoff, but a request that completes with a
// non-2xx status is returned immediately as a *NetworkError without consuming
// any retry budget. An HTTP error status is an answer from the backend, not a
// delivery failure, and several SDK flows key off specific status codes (a
// 404 on a device update triggers local storage recovery; a 404 on a message
// fetch means "nothing to show").
//
// Backoff is expressed as a pure BackoffStrategy and sleeping is injectable,
// so the schedule can be asserted in tests without real timers.
//
// # Usage
//
//	client, err := httpclient.New("https://push.notifica.re",
//	    httpclient.WithBasicAuth(appKey, appSecret),
//	)
//	if err != nil { ... }
//
//	resp, err := client.Get(ctx, "/api/application/info")
//	if err != nil { ... }
//
//	var payload applicationResponse
//	if err := resp.DecodeJSON(&payload); err != nil { ... }
package httpclient
