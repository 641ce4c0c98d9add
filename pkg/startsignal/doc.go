// Package startsignal shares runtime start signals through Redis.
//
// A single process can use bridge.Starts. When the server runtime is spread
// over several processes behind a load balancer, the process that accepts
// the client's connection is not necessarily the one whose proxies are
// waiting for it. Signals records starts under a shared key so every
// process observes them.
package startsignal
