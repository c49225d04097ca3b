/*
Package resources resolves all kinds of resources for an application.

As resource loading may be a time-consuming task, some functions in this
package will work in an async/await fashion by returning a promise.
Functions named

	Resolve…(…)

will return a resource-specific promise type, which the client will call later
to receive the loaded resource. The call to the promise-function will then block
until loading has completed.

Fonts are searched in the application's font registry, in the system's font
folders, through fontconfig, and finally in the Google webfont directory,
in this order.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package resources

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'epress.resources'
func tracer() tracing.Trace {
	return tracing.Select("epress.resources")
}
