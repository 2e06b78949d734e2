// Package model defines the minimal interface the engine needs to drive a
// remote language model, plus the normalized request/response structures the
// provider subpackages (google, anthropic, openai) translate to and from
// their vendor SDKs.
package model
