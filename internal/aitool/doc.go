// Package aitool invokes the AI coding assistant for one target and captures its transcript.
package aitool
