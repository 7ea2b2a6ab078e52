package codegen

// Environment maps names to objects for one lexical scope.
//
// Nested scopes receive a Clone: the mapping is copied, the objects are not.
// A name bound inside a branch stays inside it, while a store through a
// Place that existed before the branch is seen by everyone holding it.
type Environment struct {
	store map[string]Object
}

// NewEnvironment returns a root environment seeded with the built-in names.
func NewEnvironment() *Environment {
	e := &Environment{store: make(map[string]Object)}
	e.store["null"] = Null{}
	e.store["void"] = Null{}
	e.store["printf"] = BuiltIn{Kind: BuiltInPrintf}
	e.store["length"] = BuiltIn{Kind: BuiltInLength}
	return e
}

// Get returns the object bound to name, or an *Error if there is none.
func (e *Environment) Get(name string) Object {
	if obj, ok := e.store[name]; ok {
		return obj
	}
	return &Error{Message: name + " is not found"}
}

// Set binds name to value, replacing any previous binding, and returns value.
func (e *Environment) Set(name string, value Object) Object {
	e.store[name] = value
	return value
}

// Clone returns a snapshot of e for a nested scope.
func (e *Environment) Clone() *Environment {
	c := &Environment{store: make(map[string]Object, len(e.store))}
	for k, v := range e.store {
		c.store[k] = v
	}
	return c
}

// callables returns a scope holding only the bindings that are valid in
// another function: built-ins, null and functions. Places belong to the
// frame that allocated them and are left out.
func (e *Environment) callables() *Environment {
	c := &Environment{store: make(map[string]Object)}
	for k, v := range e.store {
		switch v.(type) {
		case *Function, BuiltIn, Null:
			c.store[k] = v
		}
	}
	return c
}
