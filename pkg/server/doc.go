// Package server hosts component trees over HTTP: a streaming SSR
// handler that flushes document chunks as async content settles, and
// live websocket sessions that run a server-side root and ship DOM
// mutation patches to a thin client.
package server
