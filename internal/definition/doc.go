// Package definition loads the resource definition file.
//
// The file declares the resources this simulator hosts and the remote
// resources it drives with automatic requests:
//
//	resources:
//	  - uri: /a/light
//	    name: Light
//	    type: oic.r.light
//	    interfaces: [oic.if.baseline, oic.if.a]
//	    observable: true
//	    properties:
//	      power: { type: boolean, default: false, required: true }
//	      dim:   { type: integer, default: 0, range: [0, 100] }
//	      mode:  { type: string, values: [auto, manual] }
//	      trail: { type: array, range: [1, 3], items: { type: integer, range: [0, 9] } }
//	    updates:
//	      - { attribute: dim, mode: repeat, interval: 500 }
//
//	remotes:
//	  - uri: /b/fan
//	    host: simulator-002
//	    requests:
//	      get:
//	        query: { if: [oic.if.baseline, oic.if.a] }
//	      put:
//	        payload:
//	          speed: { type: integer, range: [0, 3] }
//	    autostart: [put]
//
// Property order in the file is preserved in the built schema, so update
// sessions and request payloads walk attributes in the order they are
// written.
//
// # Key Types
//
//   - File: the parsed document; Parse validates it by building every schema
//   - Resource / Remote: one hosted or remote resource
//   - Property / Properties: schema nodes, built into schema.Property trees
//
// # Failure Modes
//
// Structural schema defects (an array without items, arrays nested deeper
// than schema.MaxDepth) wrap schema.ErrBadSchema. Every other problem wraps
// ErrInvalidDefinition. Parse reports all defects at once.
package definition
