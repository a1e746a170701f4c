package main

import "github.com/fatih/color"

// Small named wrappers around fatih/color, same shape as kryptco-kr's
// color.go: force-enable color (urfave/cli callers are almost always an
// interactive terminal) and return a plain string rather than writing
// directly, so callers can compose it into fmt.Printf.

func green(s string) string  { return enabled(color.FgHiGreen).SprintFunc()(s) }
func yellow(s string) string { return enabled(color.FgHiYellow).SprintFunc()(s) }
func red(s string) string    { return enabled(color.FgHiRed).SprintFunc()(s) }
func cyan(s string) string   { return enabled(color.FgHiCyan).SprintFunc()(s) }

func enabled(attr color.Attribute) *color.Color {
	c := color.New(attr)
	c.EnableColor()
	return c
}
