// Package core contains the shared data model of agentcrew: chat messages,
// tool call descriptors, the append-only Conversation owned by a running
// agent, and token usage accounting shared between providers and the limits
// guard. All types here are transport-agnostic; provider adapters translate
// them into vendor wire formats.
package core
