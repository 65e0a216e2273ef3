// Package closer keeps the error from a deferred Close.
package closer

import "io"

// ErrorHandler closes c and stores its error in *in, unless *in already holds one.
//
//	defer closer.ErrorHandler(rt, &err)
func ErrorHandler(c io.Closer, in *error) {
	cerr := c.Close()
	if *in == nil {
		*in = cerr
	}
}
