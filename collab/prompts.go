
package collab

import "log"

// AutoPrompts is a headless UserPrompts: it accepts every transfer and
// resolves every name conflict by rename, matching the CLI's lack of an
// interactive surface. It still reports errors through the standard logger
// so a user running lanxferd sees them.
type AutoPrompts struct{}

func (AutoPrompts) ConfirmTransfer(fileName string, size int64) (bool, error) {
	return true, nil
}

func (AutoPrompts) ResolveConflict(fileName string) (ConflictChoice, error) {
	return Rename, nil
}

func (AutoPrompts) ReportError(msg string) {
	log.Println("transfer error:", msg)
}

// ConfirmAllPrompts is like AutoPrompts but refuses every conflicting name
// instead of renaming, suited to a non-interactive run that would rather
// fail loudly than silently create "name (1).ext" siblings.
type ConfirmAllPrompts struct{}

func (ConfirmAllPrompts) ConfirmTransfer(fileName string, size int64) (bool, error) {
	return true, nil
}

func (ConfirmAllPrompts) ResolveConflict(fileName string) (ConflictChoice, error) {
	return Abort, nil
}

func (ConfirmAllPrompts) ReportError(msg string) {
	log.Println("transfer error:", msg)
}
