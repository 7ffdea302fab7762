// Package main is the entry point for the linksgo binary.
// Command dispatch, config files and environment overrides live in the cmd
// package; main only calls cmd.Execute.
package main

import "github.com/go-i2p/linksgo/cmd"

func main() { cmd.Execute() }
