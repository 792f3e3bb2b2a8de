package project

// Confirmer answers yes/no questions before destructive operations.
type Confirmer interface {
	Confirm(question string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) bool

func (f ConfirmFunc) Confirm(question string) bool { return f(question) }

// AlwaysYes confirms everything; used for --yes and non-interactive callers.
var AlwaysYes Confirmer = ConfirmFunc(func(string) bool { return true })

// AlwaysNo declines everything.
var AlwaysNo Confirmer = ConfirmFunc(func(string) bool { return false })
