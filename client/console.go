package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/burntcarrot/nvspad/commons"
	"github.com/burntcarrot/nvspad/editsync"
	"github.com/fatih/color"
)

// consolePresenter reflects the outcome of edits made with the set command on stdout.
type consolePresenter struct {
	mu     sync.Mutex
	alerts int
	reload func() (commons.Listing, error)
}

func (c *consolePresenter) Render(listing commons.Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	printListing(listing)
}

func (c *consolePresenter) Alert(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts++
	color.Red("%s", msg)
}

func (c *consolePresenter) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	color.Yellow("Reloading...")
	listing, err := c.reload()
	if err != nil {
		color.Red("Failed to reload: %s", err)
		return
	}
	printListing(listing)
}

func (c *consolePresenter) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alerts > 0
}

func printListing(listing commons.Listing) {
	for _, e := range listing.Contents {
		color.Green("%s/%s = %s (%s)", e.Namespace, e.Key, e.Value, e.DType)
	}
}

var errBadAssignment = errors.New("expected [namespace/]key=value")

// parseAssignment parses a [namespace/]key=value argument.
func parseAssignment(arg string) (editsync.Field, error) {
	name, value, ok := strings.Cut(arg, "=")
	if !ok {
		return editsync.Field{}, fmt.Errorf("%q: %w", arg, errBadAssignment)
	}

	var f editsync.Field
	if namespace, key, ok := strings.Cut(name, "/"); ok {
		f.Namespace, f.Name = namespace, key
	} else {
		f.Name = name
	}
	f.Value = value

	if strings.TrimSpace(f.Name) == "" {
		return editsync.Field{}, fmt.Errorf("%q: %w", arg, editsync.ErrMissingKey)
	}
	return f, nil
}
