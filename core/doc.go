// Package core contains the shared data model of the crawlchat agent: the
// conversation message and trace types exchanged between the processor, the
// engine and the model providers, the structured chat result returned to
// callers, the agent lifecycle state machine and the tagged error taxonomy
// used to classify failures at the startup and request boundaries.
package core
