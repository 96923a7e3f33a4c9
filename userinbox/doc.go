// Package userinbox parses user-level inbox payloads fetched by the host.
//
// Unlike the device inbox, the user inbox lives behind the host's own
// backend: the host fetches the raw payload with its own authentication and
// hands it to Parse. Opening an item completes the embedded notification and
// records the open event.
package userinbox
