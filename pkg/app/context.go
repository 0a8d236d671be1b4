package app

import (
	"context"

	"k8s.io/klog/v2"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Progress reporting
	ProgressCallback func(update ProgressUpdate)
}

// NewContext creates a new application context
func NewContext() *Context {
	return &Context{
		Context:      context.Background(),
		OutputFormat: "table",
	}
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(ProgressUpdate)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(update ProgressUpdate) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(update)
	}
}

// Log emits a structured message at verbosity 2, which --verbose enables
func (c *Context) Log(message string, keysAndValues ...any) {
	if c.Quiet {
		return
	}
	klog.V(2).InfoSDepth(1, message, keysAndValues...)
}

// Error logs an error unless quiet
func (c *Context) Error(err error, message string, keysAndValues ...any) {
	if c.Quiet {
		return
	}
	klog.ErrorSDepth(1, err, message, keysAndValues...)
}
