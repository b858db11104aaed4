// Package rbac implements organization-defined roles and the permission
// evaluator the whole administration core consults.
//
// A role is a named set of capability strings scoped to one organization.
// Permission evaluation resolves every role assigned to a user within the
// organization, unions the permission sets with the user's built-in
// membership role, and tests capability membership. The evaluator gates its
// own administration: creating, updating and assigning roles each require a
// roles:* capability checked through the same function.
//
// Check results are cached in an in-process LRU with a short TTL; every
// role mutation invalidates the affected organization's entries so a role
// update is visible to the next permission check.
package rbac
