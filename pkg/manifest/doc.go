// Package manifest loads component authority declarations from YAML
// manifests, either on local disk or in an S3 bucket.
//
// A manifest lists markers and the runtime that owns each of them:
//
//	components:
//	  - marker: app.Counter
//	    runtime: client
//	  - marker: app.Chart
//	    client: true
//	  - marker: app.Shared     # no runtime: built wherever it is requested
//
// The result is a []mixed.Definition ready for Resolver.Initialize. Parsing
// does not check for ambiguity across entries; BuildTable does.
package manifest
