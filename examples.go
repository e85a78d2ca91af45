package main

import (
	"math/rand"
)

var examples = map[string]string{
	"Start the proxy and tail its requests": `proxypal serve`,
	"Log into Claude with your browser":     `proxypal auth login claude`,
	"Point Claude Code at the proxy":        `proxypal agents configure claude-code`,
	"Watch requests fly by":                 `proxypal dashboard`,
	"See what this month cost you":          `proxypal usage`,
	"Route Amp's smart model to Gemini":     `proxypal amp mappings add claude-opus-4-5 gemini-2.5-pro`,
	"Check your setup for problems":         `proxypal doctor`,
}

func randomExample() (string, string) {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.Intn(len(keys))]
	return desc, examples[desc]
}
