package ecs

// Bus event payloads published by the orchestrators. Dispatch is synchronous:
// every subscriber has run before the mutating call that emitted the event
// returns.

type EntityCreated struct {
	Entity EntityID
	Name   string
	Parent EntityID
}

type EntityDestroyed struct {
	Entity EntityID
	Name   string
}

type EntityReparented struct {
	Entity    EntityID
	OldParent EntityID
	NewParent EntityID
}

type ComponentAdded struct {
	Entity EntityID
	Type   string
}

type ComponentRemoved struct {
	Entity EntityID
	Type   string
}
