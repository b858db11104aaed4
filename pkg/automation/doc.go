// Package automation stores and runs automation rules. A rule fires on a
// trigger, requires every condition to hold, then runs its actions in
// order best-effort: a failing action does not stop the ones after it, and
// the execution record captures each action's outcome. Test runs use the
// same pipeline but never enter the execution log.
package automation
