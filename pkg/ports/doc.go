/*
Package ports defines the driven ports (interfaces) for the convoflow engine.

These interfaces decouple the core flow logic from external implementations,
allowing the engine to work with various storage backends, prompt sources,
and session coordination strategies.

# Key Interfaces

  - PromptSource: Responsible for loading flow prompts (e.g., from Loam, the filesystem, or Memory).
  - StateStore: Responsible for persisting and loading conversation state.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
