// Package manifest loads plugin.yaml files describing a deployable plugin
// instance: identity, instance naming, properties, advisory hints and the
// queue worker settings.
//
//	id: echo-plugin
//	version: 1.0.0
//	type: custom
//	instance:
//	  id: echo-1
//	properties:
//	  greetingPrefix: Hi
//	hints:
//	  timeout_ms: 5000
//	worker:
//	  concurrency: 8
//	  shutdown_timeout: 10s
//
// Hosts turn a manifest into the configuration for Initialize with ToConfig.
package manifest
