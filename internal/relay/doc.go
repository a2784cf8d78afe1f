// Package relay provides the HTTP implementation of domain.RelayClient
// plus a websocket consumer for pushed events.
//
// The relay is a store-and-forward service: it moves cipher envelopes,
// wrapped key grants and membership metadata between devices, and never
// sees a plaintext room key or message body.
//
// All requests are JSON over HTTP, carry the caller's context, and turn
// non-2xx statuses into errors naming the method, path and status.
package relay
