// Package model defines the provider-agnostic abstraction agents use to
// reach language / reasoning backends.
//
// Core goals:
//   - One minimal Complete contract, transport independent
//   - Keep request/response shapes small (system + prompt in, text out)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Ollama) implement the Model interface from
// this package so the agent layer remains decoupled from vendor SDKs.
package model
